// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package broadcast

import "regexp"

var streamIDRe = regexp.MustCompile(`^[a-zA-Z0-9_.-]{1,128}$`)

// IsSafeStreamID returns true if the ID is safe for URLs, store keys and subjects.
func IsSafeStreamID(id string) bool {
	return streamIDRe.MatchString(id)
}
