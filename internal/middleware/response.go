package middleware

import (
	"net/http"

	apperrors "github.com/eduinstitute/liveclass-server/internal/errors"
	"github.com/eduinstitute/liveclass-server/internal/httputil"
)

func writeError(w http.ResponseWriter, status int, code apperrors.ErrorCode, message string) {
	httputil.WriteErrorWithStatus(w, status, apperrors.New(code, message))
}
