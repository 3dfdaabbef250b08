package main

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

var (
	errInvalidLink    = errors.New("invalid youtube link")
	videoIDPattern    = regexp.MustCompile(`^[A-Za-z0-9_-]{6,}$`)
	youtubeWatchHosts = map[string]bool{
		"youtube.com":     true,
		"www.youtube.com": true,
		"m.youtube.com":   true,
	}
)

// YoutubeVideoID extracts the video id from a watch URL
// (https://www.youtube.com/watch?v=ID) or a short URL (https://youtu.be/ID).
func YoutubeVideoID(link string) (string, error) {
	l, err := url.Parse(link)
	if err != nil {
		return "", errInvalidLink
	}
	if l.Scheme != "http" && l.Scheme != "https" {
		return "", errInvalidLink
	}

	var videoID string
	host := strings.ToLower(l.Hostname())
	switch {
	case youtubeWatchHosts[host] && l.Path == "/watch":
		videoID = l.Query().Get("v")
	case host == "youtu.be":
		videoID = strings.Trim(l.Path, "/")
	}

	if !videoIDPattern.MatchString(videoID) {
		return "", errInvalidLink
	}
	return videoID, nil
}
