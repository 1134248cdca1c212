package api_test

import (
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/queryhawk/queryhawk/internal/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.ErrorLevel)

	return l
}

// testRegistry creates a registry with every base metric registered.
func testRegistry() *metrics.Registry {
	reg := metrics.NewRegistry(testLogger())
	reg.MustRegister(metrics.BaseDefinitions()...)

	return reg
}

// httptestRequest builds a body-less request.
func httptestRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, http.NoBody)
}

// record serves one request against any handler and returns the recorder.
func record(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	return w
}

// doRequest performs an HTTP request against the test router and returns the
// recorder.
func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, http.NoBody)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}
