package chatsource

import (
	"errors"
	"regexp"
)

// ErrInvalidVideoURL is returned by ExtractVideoID when url does not
// contain a recognizable 11-character YouTube video id.
var ErrInvalidVideoURL = errors.New("chatsource: could not extract video id from url")

// videoIDAlphabet matches the 11-character alphabet YouTube uses for
// video ids (spec §4.4: "ids match [A-Za-z0-9_-]{11}").
const videoIDAlphabet = `[A-Za-z0-9_-]{11}`

var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[?&]v=(` + videoIDAlphabet + `)`),
	regexp.MustCompile(`youtu\.be/(` + videoIDAlphabet + `)`),
	regexp.MustCompile(`youtube\.com/live/(` + videoIDAlphabet + `)`),
}

// ExtractVideoID extracts the 11-character video id from a
// youtube.com/watch?v=, youtu.be/ or youtube.com/live/ URL (spec §4.4
// algorithm, §8 boundary tests). It returns ErrInvalidVideoURL if none of
// the recognized forms match.
func ExtractVideoID(url string) (string, error) {
	for _, p := range videoIDPatterns {
		if m := p.FindStringSubmatch(url); m != nil {
			return m[1], nil
		}
	}
	return "", ErrInvalidVideoURL
}
