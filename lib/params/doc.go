// Package params holds the static network parameters and wallet policies the kit is
// configured with: which network to join, which script type to derive addresses for,
// and how deterministic key chains are structured.
package params
