package appstore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFirstAppID(t *testing.T) {
	testCases := []struct {
		name  string
		hrefs []string
		want  string
	}{
		{
			name:  "standard detail link",
			hrefs: []string{"https://apps.apple.com/us/app/candy-crush/id553834731"},
			want:  "553834731",
		},
		{
			name: "skips non-app links",
			hrefs: []string{
				"https://apps.apple.com/us/developer/id123456",
				"https://apps.apple.com/us/app/some-game/id99887766",
			},
			want: "99887766",
		},
		{
			name:  "id with slash separator",
			hrefs: []string{"https://apps.apple.com/us/app/thing/id/42"},
			want:  "42",
		},
		{
			name:  "app link without numeric id",
			hrefs: []string{"https://apps.apple.com/us/app/charts"},
			want:  "",
		},
		{
			name:  "empty input",
			hrefs: nil,
			want:  "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, FirstAppID(tc.hrefs))
		})
	}
}

func TestAnchorHrefs(t *testing.T) {
	html := `<html><body>
		<a href="/us/app/foo/id111">Foo</a>
		<a>anchor without href</a>
		<a href="https://example.com">External</a>
	</body></html>`

	hrefs := anchorHrefs(html)
	require.Equal(t, []string{"/us/app/foo/id111", "https://example.com"}, hrefs)
	require.Equal(t, "111", FirstAppID(hrefs))
}
