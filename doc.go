// Package atlas provides the Go client for the Atlas API.
//
// The client is built around two pieces: a session store that owns the
// bearer credential and the identity resolved from it, and a gateway
// Client through which every API call is made. The store persists the
// credential across restarts and notifies subscribers on each state
// transition; the gateway attaches the freshest credential to each call
// and force-terminates the session when the server rejects it.
//
// Quick start:
//
//	creds := credstore.NewFileStore(path, nil)
//	store := session.New(session.NewHTTPResolver(baseURL), creds)
//	store.Start(ctx)
//
//	client := atlas.NewClient(baseURL, store)
//
//	token, err := client.Login(ctx, "ada", "hunter2")
//	if err != nil {
//	    // bad credentials, endpoint unreachable, ...
//	}
//	store.Login(ctx, token)
//	store.Settle(ctx)
//
//	var companies []Company
//	if err := client.Get(ctx, "/companies", &companies); err != nil {
//	    if errors.Is(err, atlas.ErrAuthInvalid) {
//	        // the session is already terminated; prompt for login
//	    }
//	}
//
// Failures are always classified: *AuthInvalidError for a 401/403 (the
// one error with a side effect, the forced logout), *APIError for any
// other server rejection, *NetworkError when the request never
// completed. The session store itself never returns errors; its
// failures surface through the Err field of its snapshots.
package atlas
