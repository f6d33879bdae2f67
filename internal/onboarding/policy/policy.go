// Package policy maps an account role to its required document kinds. It is a
// pure table consulted by submit, decide, and status-query paths.
package policy

import (
	"tradegate/internal/account"
	"tradegate/internal/document"
)

// Requirement describes one document kind a role submits, with display
// metadata for the presentation layer.
type Requirement struct {
	Kind        document.Kind
	Required    bool
	Label       string
	Description string
}

var byRole = map[account.Role][]Requirement{
	account.RoleSupplier: {
		{
			Kind:        document.KindRegistreCommerce,
			Required:    true,
			Label:       "Registre de commerce",
			Description: "Company registration extract, issued within the last three months",
		},
		{
			Kind:        document.KindPieceIdentite,
			Required:    true,
			Label:       "Pièce d'identité",
			Description: "Identity document of the legal representative",
		},
		{
			Kind:        document.KindJustificatifDomicile,
			Required:    true,
			Label:       "Justificatif de domicile",
			Description: "Proof of business address, issued within the last three months",
		},
		{
			Kind:        document.KindAttestationFiscale,
			Required:    false,
			Label:       "Attestation fiscale",
			Description: "Tax compliance certificate, if available",
		},
	},
	account.RoleProfessionalBuyer: {
		{
			Kind:        document.KindPieceIdentite,
			Required:    true,
			Label:       "Pièce d'identité",
			Description: "Identity document of the legal representative",
		},
		{
			Kind:        document.KindRegistreCommerce,
			Required:    true,
			Label:       "Registre de commerce",
			Description: "Company registration extract, issued within the last three months",
		},
		{
			Kind:        document.KindJustificatifDomicile,
			Required:    false,
			Label:       "Justificatif de domicile",
			Description: "Proof of business address, if available",
		},
	},
}

// For returns the ordered requirements for a role. Unknown roles, and roles
// with no document stage, get an empty list rather than an error.
func For(role account.Role) []Requirement {
	reqs := byRole[role]
	out := make([]Requirement, len(reqs))
	copy(out, reqs)
	return out
}

// RequiredKinds returns just the mandatory kinds for a role, in policy order.
func RequiredKinds(role account.Role) []document.Kind {
	var kinds []document.Kind
	for _, req := range byRole[role] {
		if req.Required {
			kinds = append(kinds, req.Kind)
		}
	}
	return kinds
}

// Allows reports whether the role may submit the given kind at all.
func Allows(role account.Role, kind document.Kind) bool {
	for _, req := range byRole[role] {
		if req.Kind == kind {
			return true
		}
	}
	return false
}
