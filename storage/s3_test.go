package storage

import (
	"regexp"
	"testing"
)

func TestObjectKey(t *testing.T) {
	tests := []struct {
		slug, filename string
		want           string
	}{
		{"pad-thai", "My Photo.JPG", `^recipes/pad-thai/[0-9a-f]{8}-my-photo\.jpg$`},
		{"pad-thai", "../../etc/passwd", `^recipes/pad-thai/[0-9a-f]{8}-passwd$`},
		{"soup", "???.png", `^recipes/soup/[0-9a-f]{8}-image\.png$`},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			got := ObjectKey(tt.slug, tt.filename)
			if !regexp.MustCompile(tt.want).MatchString(got) {
				t.Errorf("ObjectKey() = %q, want match %s", got, tt.want)
			}
		})
	}
	if ObjectKey("a", "b.png") == ObjectKey("a", "b.png") {
		t.Error("keys should be unique per upload")
	}
}

func TestPublicURL(t *testing.T) {
	got := PublicURL("bucket", "eu-west-1", "recipes/a/b.png")
	want := "https://bucket.s3.eu-west-1.amazonaws.com/recipes/a/b.png"
	if got != want {
		t.Errorf("PublicURL() = %q, want %q", got, want)
	}
}
