package tui

import "github.com/rxtech-lab/argo-harvest/pkg/marketdata/inventory"

// InventoryMsg carries a fresh listing of the storage directory.
type InventoryMsg struct {
	Inventory inventory.Inventory
}

// ScanErrorMsg indicates the storage directory could not be listed.
type ScanErrorMsg struct {
	Err error
}
