package rosefs

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nucle0tides/rosefs/internal/config"
)

func TestIsNewToggle(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"{NEW} Artist - 2020. Title [Pop]", "Artist - 2020. Title [Pop]", true},
		{"Artist - 2020. Title [Pop]", "{NEW} Artist - 2020. Title [Pop]", true},
		{"Artist - 2020. Title [Pop]", "Artist - 2021. Title [Pop]", false},
		{"{NEW} Artist - 2020. Title [Pop]", "{NEW} Artist - 2020. Title [Pop]", false},
		{"Artist - 2020. Title [Pop]", "Artist - 2020. Title [Pop]", false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, isNewToggle(c.a, c.b), "isNewToggle(%q, %q)", c.a, c.b)
	}
}

func TestIsCoverArtName(t *testing.T) {
	fsys := &RoseFS{Config: &config.Config{ValidCoverArts: []string{"cover", "folder"}, ValidArtExts: []string{"jpg", "png"}}}

	cases := []struct {
		name string
		want bool
	}{
		{"cover.jpg", true},
		{"Cover.JPG", true},
		{"folder.png", true},
		{"cover.gif", false},
		{"random.jpg", false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, isCoverArtName(fsys, c.name), "isCoverArtName(%q)", c.name)
	}
}
