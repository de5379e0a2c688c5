// Package auth tracks whether the user is logged in to the broadcast service.
//
// A [Session] persists OAuth tokens through a [TokenStore], hands out token sources that write
// refreshed tokens back to the store, and notifies subscribers when the user logs in or out.
// The lifecycle controller subscribes so that a login or logout resets the selected program.
package auth
