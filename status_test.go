package nstd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestStatusText tests the StatusText function
func TestStatusText(t *testing.T) {
	testCases := []struct {
		code int
		text string
	}{
		{StatusContinue, "Continue"},
		{StatusSwitchingProtocols, "Switching Protocols"},
		{StatusOK, "OK"},
		{StatusPartialContent, "Partial Content"},
		{StatusMultipleChoices, "Multiple Choices"},
		{StatusSwitchProxy, "Switch Proxy"},
		{StatusPermanentRedirect, "Permanent Redirect"},
		{StatusBadRequest, "Bad Request"},
		{StatusNotFound, "Not Found"},
		{StatusExpectationFailed, "Expectation Failed"},
		{StatusUpgradeRequired, "Upgrade Required"},
		{StatusInternalServerError, "Internal Server Error"},
		{StatusHTTPVersionNotSupported, "HTTP Version Not Supported"},
		// codes outside the table
		{0, ""},
		{99, ""},
		{207, ""},
		{418, ""},
		{429, ""},
		{506, ""},
		{999, ""},
	}

	for _, tc := range testCases {
		got := StatusText(tc.code)
		assert.Equal(t, tc.text, got, "StatusText(%d) returned incorrect value", tc.code)
	}
}

// TestStatusTableRanges checks every code of the table ranges has a phrase
func TestStatusTableRanges(t *testing.T) {
	ranges := [][2]int{{100, 101}, {200, 206}, {300, 308}, {400, 417}, {426, 426}, {500, 505}}
	for _, r := range ranges {
		for code := r[0]; code <= r[1]; code++ {
			assert.NotEmpty(t, StatusText(code), "StatusText(%d)", code)
		}
	}
}
