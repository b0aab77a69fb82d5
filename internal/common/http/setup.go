package http

import (
	"net/http"

	"github.com/AlibekovAA/recordkeeper/internal/common/constants"
	"github.com/AlibekovAA/recordkeeper/internal/common/httpmetrics"
	"github.com/AlibekovAA/recordkeeper/internal/common/logger"
)

func BuildBaseHandler(appName string, log *logger.Logger, handler http.Handler) http.Handler {
	metrics := httpmetrics.New(appName)
	recovery := RecoveryMiddleware(log)
	maxRequestSize := MaxRequestSizeMiddleware(constants.DefaultMaxRequestSize)

	return SecurityHeadersMiddleware(CORSMiddleware(recovery(TraceIDMiddleware(maxRequestSize(metrics.Wrap(handler))))))
}
