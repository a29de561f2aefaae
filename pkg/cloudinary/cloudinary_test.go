package cloudinary

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(Config{CloudName: "demo"}, zerolog.Nop())
	require.Error(t, err)
}

func TestJoinFolder(t *testing.T) {
	require.Equal(t, "waqf/cause_images", joinFolder("waqf", "/cause_images/"))
	require.Equal(t, "cause_images", joinFolder("", "cause_images"))
	require.Equal(t, "waqf", joinFolder("waqf", ""))
}

func TestBuildPublicID(t *testing.T) {
	at := time.Unix(1700000000, 0)
	require.Equal(t, "cover-photo-1700000000", buildPublicID("cover photo.png", at))
	require.Equal(t, "upload-1700000000", buildPublicID("???.png", at))
}
