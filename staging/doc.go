// Package staging holds computed results in protected memory until the
// untrusted side retrieves them.
//
// A result is handed out in two phases. The caller first asks for its size,
// allocates a receive buffer of that size plus one byte in its own memory,
// then fetches into it. A Slot holds at most one pending result:
//
//	Empty --Stage--> Pending --Fetch--> Empty
//	           Pending --Stage--> Pending (previous value released)
//
// Fetch consumes the result, so a second fetch without a new Stage fails.
// A failed Fetch leaves the slot untouched.
//
// Table keys slots by Handle so that independent execution contexts never
// observe each other's results. Observers subscribed to a Table receive an
// Event for every slot transition.
package staging
