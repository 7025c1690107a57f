package domain

import (
	"slices"

	"github.com/samber/lo"
)

// CartRequest maps an item name to the desired quantity
type CartRequest map[string]int

// SortedNames returns the item names in the order a cart link is built:
// lexicographic, so the same request always yields the same link.
func (r CartRequest) SortedNames() []string {
	names := lo.Keys(r)
	slices.Sort(names)
	return names
}

// CartLink is a marketplace add-to-cart URL for a whole cart
type CartLink string

// ShoppingRequest is the JSON body of a cart link request. The web frontend
// sends the cart under "additionalProp1"; "items" wins when both are present.
type ShoppingRequest struct {
	Items           CartRequest `json:"items"`
	AdditionalProp1 CartRequest `json:"additionalProp1"`
}

// Cart returns the requested cart, or nil when the body carried none
func (r ShoppingRequest) Cart() CartRequest {
	if r.Items != nil {
		return r.Items
	}
	return r.AdditionalProp1
}

// ShoppingResponse is the JSON body returned for a built cart
type ShoppingResponse struct {
	CartURL CartLink `json:"cart_url"`
}
