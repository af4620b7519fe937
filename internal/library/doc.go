// Package library provides an HTTP client for the library-management REST API.
//
// # Overview
//
// This package is the single gateway between shelf and the backend. It owns
// request construction, bearer authentication, JSON encoding and the
// normalisation of failures into two error types that the rest of the
// application can present without knowing anything about HTTP.
//
// # Architecture
//
//   - client.go: Client, the Gateway interface and request handling
//   - types.go: data structures mirroring the API schema
//   - errors.go: RemoteRequestError, TransportError and message extraction
//
// # Client Usage
//
//	client, err := library.NewClient("http://127.0.0.1:8000")
//	if err != nil {
//		log.Fatalf("failed to create client: %v", err)
//	}
//
//	pair, err := client.Login(ctx, "ana", "secret")
//	if err != nil {
//		log.Printf("login failed: %s", library.Message(err))
//	}
//	client.SetToken(pair.Access)
//
//	books, err := client.ListBooks(ctx, library.BookQuery{Genre: "poetry"})
//
// # API Endpoints
//
//   - POST   /api/token/                 Login
//   - GET    /api/users/me/              CurrentUser
//   - GET    /api/users/?role=           ListUsers
//   - POST   /api/users/                 CreateUser
//   - PATCH  /api/users/{id}/            UpdateUser
//   - DELETE /api/users/{id}/            DeleteUser
//   - GET    /api/books/?title=&author_name=&genre_name=&available=   ListBooks
//   - POST   /api/books/                 CreateBook
//   - PATCH  /api/books/{id}/            UpdateBook
//   - DELETE /api/books/{id}/            DeleteBook
//   - GET    /api/loans/?is_returned=    ListLoans
//   - GET    /api/loans/{id}/            GetLoan
//   - POST   /api/loans/                 CreateLoan
//   - PATCH  /api/loans/{id}/return/     ReturnLoan
//   - DELETE /api/loans/{id}/            DeleteLoan
//
// # Request Handling
//
// All requests:
//   - Use context for cancellation
//   - Send Accept and Content-Type: application/json
//   - Send Authorization: Bearer <token> when a token is set
//   - Send a fresh X-Request-ID that also appears in the log line for the call
//   - Time out after 10 seconds unless WithTimeout says otherwise
//
// # Error Handling
//
//   - 204 No Content: success, destination left untouched
//   - Other non-2xx: *RemoteRequestError carrying the body's "error" field,
//     else its "detail" field, else "Error <status>"; an unreadable body
//     becomes "server error"
//   - No response at all: *TransportError whose message points the operator
//     at connectivity, URL and proxy/CORS configuration. The low-level cause
//     is available through errors.Unwrap but never shown to the user.
//   - Context cancellation is returned wrapped, not as a TransportError
//
// Use Message to turn any error from this package into display text.
//
// # Thread Safety
//
// Client is safe for concurrent use. The token is guarded by a RWMutex so
// the session store can swap it while screens are fetching.
package library
