// Package db provides the embedded schema for the snapshot store.
package db

import _ "embed"

// Schema contains the DDL for the cart_snapshots table.
//
//go:embed migrations/001_schema.sql
var Schema string
