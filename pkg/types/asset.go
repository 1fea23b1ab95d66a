package types

// AssetClass is an opaque, totally ordered identifier for a traded asset.
// The core never interprets it beyond equality and ordering; collaborators
// decide what a label actually names (a policy+token pair, a ticker, ...).
type AssetClass string

// Less gives AssetClass its total order, used to canonicalize PairId.
func (a AssetClass) Less(b AssetClass) bool { return a < b }
