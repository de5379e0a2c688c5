// Package services defines the [Broadcaster] interface for the live broadcast API and implements it for Nicolive.
//
// # Broadcaster Interface
//
// Every call returns a [Result] holding the decoded value and the server's Date header.
// The session uses the date to correct the local clock, so it is kept even on failure.
//
// # Nicolive Implementation
//
// [NicoliveClient] sends requests through a resty client whose transport stacks:
//   - [oauth2.Transport] : bearer token from the login session, refreshed automatically
//   - retryablehttp : retries transport failures and 5xx responses for GET requests only
//
// Start, end and extend are never retried because repeating them is not safe.
// A [rate.Limiter] throttles all requests.
//
// # Error Handling
//
// Non-2xx responses become [*APIError] carrying the status code and the envelope error code.
// [APIError] unwraps to [shared.ErrAPIRequest]. The password endpoint maps its
// NOT_PASSWORD_PROGRAM response to [ErrNotPasswordProtected].
//
// # Program Flows
//
// Creating and editing a program happen on the broadcast site. [BrowserFlow] opens the page
// and asks the user to confirm, implementing [ProgramFlow].
package services
