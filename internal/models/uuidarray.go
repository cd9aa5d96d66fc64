// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// UUIDArray maps a PostgreSQL uuid[] column onto a Go slice. Materialized
// paths are stored as a real array, not a delimited string, so ordering and
// containment queries stay in SQL; this type only translates the wire format
// ("{a,b,c}") used by the database/sql driver.
type UUIDArray []uuid.UUID

// Scan implements sql.Scanner for uuid[] columns.
func (a *UUIDArray) Scan(src any) error {
	var lit string
	switch v := src.(type) {
	case nil:
		*a = nil
		return nil
	case string:
		lit = v
	case []byte:
		lit = string(v)
	default:
		return fmt.Errorf("uuid array: cannot scan %T", src)
	}

	lit = strings.TrimSpace(lit)
	if !strings.HasPrefix(lit, "{") || !strings.HasSuffix(lit, "}") {
		return fmt.Errorf("uuid array: malformed literal %q", lit)
	}
	lit = lit[1 : len(lit)-1]
	if lit == "" {
		*a = UUIDArray{}
		return nil
	}

	parts := strings.Split(lit, ",")
	out := make(UUIDArray, 0, len(parts))
	for _, p := range parts {
		id, err := uuid.Parse(strings.Trim(p, `" `))
		if err != nil {
			return fmt.Errorf("uuid array: element %q: %w", p, err)
		}
		out = append(out, id)
	}
	*a = out
	return nil
}

// Value implements driver.Valuer, producing the array literal the server expects.
func (a UUIDArray) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	elems := make([]string, len(a))
	for i, id := range a {
		elems[i] = id.String()
	}
	return "{" + strings.Join(elems, ",") + "}", nil
}

// Contains reports whether id appears anywhere in the array.
func (a UUIDArray) Contains(id uuid.UUID) bool {
	for _, v := range a {
		if v == id {
			return true
		}
	}
	return false
}

// Equal reports element-wise equality.
func (a UUIDArray) Equal(b UUIDArray) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
