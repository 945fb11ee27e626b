package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/loykin/dolphin/internal/common"
	"github.com/loykin/dolphin/internal/constants"
)

const requestIDKey = "dolphin.request_id"

// RequestID returns the id assigned to the current request.
func RequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// ErrorBody is the JSON envelope of failed requests.
type ErrorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId"`
}

// AbortWithError writes status with an ErrorBody carrying the request id.
func AbortWithError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, ErrorBody{Error: msg, RequestID: RequestID(c)})
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(constants.RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(constants.RequestIDHeader, id)
		c.Next()
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodHead},
		AllowHeaders:     []string{"Origin", "Accept", "Content-Type", "Authorization", "X-Requested-With", constants.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", constants.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowOriginFunc = func(string) bool { return false }
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

// errorMiddleware turns panics and unhandled c.Error values into the fixed
// 500 envelope.
func errorMiddleware(logger *common.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				if r == http.ErrAbortHandler {
					panic(r)
				}
				requestLogger(logger, c).Error("unhandled panic while processing request",
					"error", fmt.Sprint(r),
					"stack", string(debug.Stack()))
				if !c.Writer.Written() {
					AbortWithError(c, http.StatusInternalServerError, constants.InternalErrorText)
				} else {
					c.Abort()
				}
			}
		}()

		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		requestLogger(logger, c).Error("unhandled error while processing request", "error", c.Errors.Last().Err)
		AbortWithError(c, http.StatusInternalServerError, constants.InternalErrorText)
	}
}

func requestLogger(logger *common.Logger, c *gin.Context) *common.Logger {
	return logger.WithRequest(c.Request.Method, c.Request.URL.Path, RequestID(c))
}

// bodyWriter keeps a bounded copy of the response body for logging.
type bodyWriter struct {
	gin.ResponseWriter
	buf   bytes.Buffer
	limit int
}

func (w *bodyWriter) capture(b []byte) {
	if room := w.limit - w.buf.Len(); room > 0 {
		if len(b) > room {
			b = b[:room]
		}
		w.buf.Write(b)
	}
}

func (w *bodyWriter) Write(b []byte) (int, error) {
	w.capture(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyWriter) WriteString(s string) (int, error) {
	w.capture([]byte(s))
	return w.ResponseWriter.WriteString(s)
}

// readBody returns up to limit bytes of the request body and restores it.
func readBody(r *http.Request, limit int) string {
	if r.Body == nil || r.Body == http.NoBody {
		return ""
	}
	head, _ := io.ReadAll(io.LimitReader(r.Body, int64(limit)))
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(head), r.Body), r.Body}
	return string(head)
}

// loggingMiddleware logs one line per request with headers and bodies.
func loggingMiddleware(logger *common.Logger) gin.HandlerFunc {
	masker := common.GetGlobalMasker()
	return func(c *gin.Context) {
		start := time.Now()
		reqBody := readBody(c.Request, constants.MaxLoggedBodyBytes)
		bw := &bodyWriter{ResponseWriter: c.Writer, limit: constants.MaxLoggedBodyBytes}
		c.Writer = bw

		c.Next()

		status := c.Writer.Status()
		l := requestLogger(logger, c)
		args := []any{
			"status", status,
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
			"query", c.Request.URL.RawQuery,
			"request_headers", masker.MaskHeaders(c.Request.Header),
			"request_body", reqBody,
			"response_headers", masker.MaskHeaders(c.Writer.Header()),
			"response_body", bw.buf.String(),
			"response_size", c.Writer.Size(),
		}
		switch {
		case status >= http.StatusInternalServerError:
			l.Error("request completed", args...)
		case status >= http.StatusBadRequest:
			l.Warn("request completed", args...)
		default:
			l.Info("request completed", args...)
		}
	}
}
