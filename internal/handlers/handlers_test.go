package handlers

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestBindingMessage(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"empty body", io.EOF, "Request body is missing"},
		{"wrapped eof", fmt.Errorf("decode: %w", io.EOF), "Request body is missing"},
		{"syntax", fmt.Errorf("invalid character 'x'"), "Invalid request body: invalid character 'x'"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := bindingMessage(tc.err); got != tc.want {
				t.Fatalf("bindingMessage() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestBindJSONEmptyBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	c.Request.Header.Set("Content-Type", "application/json")

	var body struct {
		Email string `json:"email"`
	}
	if bindJSON(c, &body) {
		t.Fatal("bindJSON() accepted an empty body")
	}
	if len(c.Errors) != 1 || !strings.Contains(c.Errors.Last().Error(), "Request body is missing") {
		t.Fatalf("errors = %v", c.Errors)
	}
}
