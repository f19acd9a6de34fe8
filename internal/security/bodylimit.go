package security

import (
	"errors"
	"net/http"

	"github.com/guna684/book-shop-project-sub001/internal/common"
)

// BodyLimit caps the size of request payloads such as carts and promo definitions.
type BodyLimit struct {
	Max int64
}

// Middleware rejects declared oversized bodies up front and bounds the reader
// so handlers decoding JSON fail once the cap is crossed.
func (b BodyLimit) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b.Max <= 0 || r.Body == nil || r.Body == http.NoBody {
			next.ServeHTTP(w, r)
			return
		}
		if r.ContentLength > b.Max {
			common.JSONError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body too large", nil)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, b.Max)
		next.ServeHTTP(w, r)
	})
}

// IsTooLarge reports whether err came from a body exceeding the limit.
func IsTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
