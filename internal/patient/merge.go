package patient

import "strings"

// Merge applies the fields present in req over existing and returns the
// result. Nil and blank values leave the current value untouched; address
// fields merge one by one. existing is not modified.
func Merge(existing Patient, req UpdateRequest) Patient {
	merged := existing

	if v, ok := present(req.Name); ok {
		merged.Name = v
	}
	if v, ok := present(req.Phone); ok {
		merged.Phone = v
	}
	if req.Address != nil {
		merged.Address = mergeAddress(existing.Address, *req.Address)
	}

	return merged
}

func mergeAddress(a Address, u AddressUpdate) Address {
	if v, ok := present(u.Street); ok {
		a.Street = v
	}
	if v, ok := present(u.Number); ok {
		a.Number = v
	}
	if v, ok := present(u.Complement); ok {
		a.Complement = v
	}
	if v, ok := present(u.District); ok {
		a.District = v
	}
	if v, ok := present(u.City); ok {
		a.City = v
	}
	if v, ok := present(u.State); ok {
		a.State = v
	}
	if v, ok := present(u.Zip); ok {
		a.Zip = v
	}
	return a
}

func present(s *string) (string, bool) {
	if s == nil {
		return "", false
	}
	v := strings.TrimSpace(*s)
	return v, v != ""
}

// ChangedFields lists the JSON names of the mutable fields that differ
// between before and after.
func ChangedFields(before, after Patient) []string {
	var changed []string
	if before.Name != after.Name {
		changed = append(changed, "nome")
	}
	if before.Phone != after.Phone {
		changed = append(changed, "telefone")
	}

	b, a := before.Address, after.Address
	addr := []struct {
		name          string
		before, after string
	}{
		{"endereco.logradouro", b.Street, a.Street},
		{"endereco.numero", b.Number, a.Number},
		{"endereco.complemento", b.Complement, a.Complement},
		{"endereco.bairro", b.District, a.District},
		{"endereco.cidade", b.City, a.City},
		{"endereco.uf", b.State, a.State},
		{"endereco.cep", b.Zip, a.Zip},
	}
	for _, f := range addr {
		if f.before != f.after {
			changed = append(changed, f.name)
		}
	}
	return changed
}
