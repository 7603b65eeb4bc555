// utils/http.go
package utils

import (
	"net/http"
	"time"
)

var HTTPClient = &http.Client{
	Timeout: 15 * time.Second, // runtime handoff and collaborator pushes are small requests
}
