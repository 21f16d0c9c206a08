// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CityPlanner Contributors

package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/samber/oops"

	"github.com/cityplanner/cityplanner/internal/auth"
	"github.com/cityplanner/cityplanner/internal/planning"
	"github.com/cityplanner/cityplanner/pkg/errutil"
)

// Error codes raised by the HTTP layer itself.
const (
	CodeBadRequest       = "BAD_REQUEST"
	CodeRequestTooLarge  = "REQUEST_TOO_LARGE"
	CodeMissingToken     = "AUTH_MISSING_TOKEN"
	CodeOriginNotAllowed = "CORS_ORIGIN_NOT_ALLOWED"
	CodeInternal         = "INTERNAL"
)

type errorBody struct {
	Detail string `json:"detail"`
	Code   string `json:"code"`
}

// statusFor maps an error code to its HTTP status. Unknown codes are 500.
func statusFor(code string) int {
	switch code {
	case CodeBadRequest:
		return http.StatusBadRequest
	case auth.CodeInvalidCredentials, auth.CodeTokenInvalid, auth.CodeTokenExpired,
		auth.CodeTokenMalformed, CodeMissingToken:
		return http.StatusUnauthorized
	case auth.CodeAccountInactive, CodeOriginNotAllowed:
		return http.StatusForbidden
	case planning.CodeProjectNotFound, planning.CodeLocationNotFound, planning.CodeRoadNotFound:
		return http.StatusNotFound
	case auth.CodeDuplicateEmail:
		return http.StatusConflict
	case CodeRequestTooLarge:
		return http.StatusRequestEntityTooLarge
	case auth.CodeInvalidEmail, auth.CodeInvalidFullName, auth.CodeEmptyPassword, planning.CodeValidation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// detailFor returns the client-facing message for an error.
// Token failures share one message so clients learn nothing about why.
func detailFor(code string, err error) string {
	switch code {
	case auth.CodeDuplicateEmail:
		return "email already registered"
	case auth.CodeInvalidCredentials:
		return "invalid email or password"
	case auth.CodeAccountInactive:
		return "user account is inactive"
	case auth.CodeTokenExpired:
		return "token has expired"
	case auth.CodeTokenInvalid, auth.CodeTokenMalformed, CodeMissingToken:
		return "could not validate credentials"
	case planning.CodeProjectNotFound:
		return "project not found"
	case planning.CodeLocationNotFound:
		return "location not found"
	case planning.CodeRoadNotFound:
		return "road not found"
	case CodeInternal:
		return "internal server error"
	}

	var ve *planning.ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	return err.Error()
}

// writeError reports err to the client. Server-side failures are logged with
// their full context and hidden behind a generic message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errutil.Code(err)
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		errutil.LogErrorContext(r.Context(), s.logger, "request failed", err)
		code = CodeInternal
	}
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	s.writeJSON(w, r, status, errorBody{Detail: detailFor(code, err), Code: code})
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.DebugContext(r.Context(), "write response failed", "error", err)
	}
}

// decodeJSON reads one JSON value from the request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errutil.Code(err) != "":
			return err
		case errors.As(err, &tooLarge):
			return oops.Code(CodeRequestTooLarge).
				With("limit", tooLarge.Limit).
				Errorf("request body exceeds %d bytes", tooLarge.Limit)
		case errors.Is(err, io.EOF):
			return oops.Code(CodeBadRequest).Errorf("request body is empty")
		case errors.As(err, &typeErr):
			return oops.Code(planning.CodeValidation).
				With("field", typeErr.Field).
				Wrap(&planning.ValidationError{Field: typeErr.Field, Message: "must be " + typeErr.Type.String()})
		default:
			return oops.Code(CodeBadRequest).Wrapf(err, "malformed JSON body")
		}
	}
	return nil
}
