// naming.go - Injectable default-naming strategy for individuals.
//
// The ledger invokes the strategy only when the caller supplies no name,
// so locales and formats can change without touching session logic.
package billing

import "fmt"

// NamingStrategy produces a default display name for the (count+1)-th
// individual of a session.
type NamingStrategy func(currentCount int) string

// DefaultNaming numbers individuals in Arabic: "فرد 1", "فرد 2", ...
func DefaultNaming(currentCount int) string {
	return fmt.Sprintf("فرد %d", currentCount+1)
}
