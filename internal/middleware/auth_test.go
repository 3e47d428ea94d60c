package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/harshssd/HyperFit-sub001/internal/auth"
	"github.com/harshssd/HyperFit-sub001/internal/middleware"
)

func TestAuthMiddlewareHandler_AuthCheck(t *testing.T) {
	loginChecker := auth.NewLoginTestChecker()
	loginChecker.LoggedSessions["valid-token"] = "user-1"
	authMiddleware := middleware.NewAuthMiddlewareHandler(loginChecker)

	testCases := []struct {
		name               string
		path               string
		method             string
		token              string
		expectedStatusCode int
		expectedUserID     string
	}{
		{
			name:               "AllowedPathWithoutToken",
			path:               "/a/login",
			method:             "POST",
			expectedStatusCode: http.StatusOK,
		},
		{
			name:               "ClassifyWithoutToken",
			path:               "/workout/classify",
			method:             "GET",
			expectedStatusCode: http.StatusOK,
		},
		{
			name:               "ProtectedPathWithoutToken",
			path:               "/workout",
			method:             "GET",
			expectedStatusCode: http.StatusUnauthorized,
		},
		{
			name:               "ValidToken",
			path:               "/workout",
			method:             "GET",
			token:              "valid-token",
			expectedStatusCode: http.StatusOK,
			expectedUserID:     "user-1",
		},
		{
			name:               "InvalidToken",
			path:               "/workout",
			method:             "GET",
			token:              "invalid-token",
			expectedStatusCode: http.StatusUnauthorized,
		},
		{
			name:               "OptionsPreflight",
			path:               "/workout",
			method:             "OPTIONS",
			expectedStatusCode: http.StatusOK,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req, err := http.NewRequest(tc.method, tc.path, nil)
			assert.NoError(t, err)
			if tc.token != "" {
				req.Header.Add(auth.TokenHeader, tc.token)
			}

			var gotUserID string
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotUserID, _ = auth.UserIDFromContext(r.Context())
			})

			rr := httptest.NewRecorder()
			authMiddleware.AuthCheck()(handler).ServeHTTP(rr, req)

			assert.Equal(t, tc.expectedStatusCode, rr.Code)
			if tc.expectedUserID != "" {
				assert.Equal(t, tc.expectedUserID, gotUserID)
			}
		})
	}
}
