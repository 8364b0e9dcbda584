// Package models defines the core domain models for the chit fund backend.
//
// # Models
//
//   - User: Registered account; the caller identity behind every request
//   - Group: A chit fund with a fixed monthly contribution and member count
//   - Member: A user's role and status within one group
//   - Auction: One monthly round in which members bid for the pooled fund
//   - Bid: An append-only offer placed on an open auction
//   - Payment: Contributions into and payouts out of a group
//   - Notification: An invitation to join a group
//
// # Design Principles
//
//  1. **Typed at the boundary**: enum columns are parsed with the Parse* functions
//     and unknown values are rejected instead of passed through
//  2. **Exact money**: every amount is a decimal.Decimal, never a float
//  3. **Nullable means pointer**: optional columns (winner, auction reference,
//     read time) are pointers so absence is explicit
//  4. **IDs, not pointers**: relationships are expressed with ID strings
package models
