package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyHeader = "Idempotency-Key"
	idempotencyTTL    = 24 * time.Hour
)

// storedReply is the replayable part of a response to an idempotent request.
type storedReply struct {
	StatusCode  int             `json:"status_code"`
	Body        json.RawMessage `json:"body"`
	ContentType string          `json:"content_type"`
}

// captureWriter tees the response body so it can be stored for replay.
type captureWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// Idempotency replays the stored response when a mutating request arrives
// with an Idempotency-Key already seen for the same method and path. Clients
// that retry ride transitions after a timeout get the original outcome back
// instead of a second state change.
func Idempotency(redisClient *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !isMutating(c.Request.Method) {
			c.Next()
			return
		}

		key := c.GetHeader(idempotencyHeader)
		if key == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		// Scope by method and path so the same key on different routes
		// cannot replay an unrelated response.
		storeKey := "idempotency:" + c.Request.Method + ":" + c.FullPath() + ":" + key

		reply, err := loadReply(ctx, redisClient, storeKey)
		if err != nil && err != redis.Nil {
			// Redis trouble should not block the request.
			c.Next()
			return
		}

		if reply != nil {
			contentType := reply.ContentType
			if contentType == "" {
				contentType = "application/json"
			}
			c.Data(reply.StatusCode, contentType, reply.Body)
			c.Abort()
			return
		}

		w := &captureWriter{
			ResponseWriter: c.Writer,
			body:           &bytes.Buffer{},
		}
		c.Writer = w

		c.Next()

		// Server errors are not stored so the client can retry them.
		if c.Writer.Status() >= 200 && c.Writer.Status() < 500 {
			_ = storeReply(ctx, redisClient, storeKey, &storedReply{
				StatusCode:  c.Writer.Status(),
				Body:        w.body.Bytes(),
				ContentType: c.Writer.Header().Get("Content-Type"),
			})
		}
	}
}

func loadReply(ctx context.Context, client *redis.Client, key string) (*storedReply, error) {
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}

	var reply storedReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return nil, err
	}

	return &reply, nil
}

func storeReply(ctx context.Context, client *redis.Client, key string, reply *storedReply) error {
	data, err := json.Marshal(reply)
	if err != nil {
		return err
	}

	return client.Set(ctx, key, data, idempotencyTTL).Err()
}
