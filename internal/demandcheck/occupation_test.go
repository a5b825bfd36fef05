package demandcheck

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeJobTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Bürokauffrau", "burokauffrau"},
		{"BÜROKAUFFRAU", "burokauffrau"},
		{"Burokauffrau", "burokauffrau"},
		{"  Beamter  im   gehobenen Dienst ", "beamter im gehobenen dienst"},
		{"Straßenbahnführer", "strassenbahnfuhrer"},
		{"", ""},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, NormalizeJobTitle(tc.in), "input %q", tc.in)
	}
}
