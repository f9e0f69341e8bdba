// Package chainstore keeps the kit's header chain in a Badger database.
//
// The chain only grows by Append, which accepts a run of headers that extends the
// current head; anything else is rejected with ErrNotContiguous. Every store starts
// at a genesis header derived from its network.
package chainstore
