package yieldledger

import "github.com/xraph/yieldledger/id"

// ID is the identifier type carried by ledger events.
type ID = id.ID

// Prefix identifies the event type encoded in a TypeID.
type Prefix = id.Prefix
