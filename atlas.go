package atlas

import "net/http"

// CredentialSource is the narrow view of the session store the gateway
// needs: read the current credential at dispatch time, and terminate the
// session when the server rejects it. This is the only way the gateway
// mutates session state; it never sets a credential, only clears one.
type CredentialSource interface {
	// Credential returns the current bearer token, "" when none is held.
	Credential() string

	// Invalidate force-terminates the session. Called synchronously on
	// a 401 or 403 response.
	Invalidate()
}

// RequestOptions describes one gateway call. The zero value is a GET
// with no body and no extra headers.
type RequestOptions struct {
	// Method is the HTTP method. Defaults to GET.
	Method string

	// Body is JSON-marshaled into the request body when non-nil.
	Body any

	// Header carries per-call header overrides. A caller-supplied
	// Content-Type suppresses the default application/json.
	Header http.Header
}

// apiErrorBody is the error shape the protected API answers with.
type apiErrorBody struct {
	Message string `json:"message"`
}

// loginRequest is the payload for the login endpoint.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginResponse is the login endpoint's success shape.
type loginResponse struct {
	Token string `json:"token"`
}
