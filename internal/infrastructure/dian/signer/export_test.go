package signer

var Canonicalize = canonicalize
