package video

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "golang.org/x/image/bmp"
)

var frameExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
}

// DirSource yields frames from a directory of image files, ordered by file
// name. This is the decoded form the ffmpeg collaborator produces, but any
// directory of still images works as a clip.
type DirSource struct {
	paths []string
	pos   int
}

// NewDirSource lists the frame images in dir. The frame order is the
// lexicographic file name order, which matches the zero-padded numbering the
// extractor writes.
func NewDirSource(dir string) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading frame directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if frameExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	return &DirSource{paths: paths}, nil
}

func (s *DirSource) NextFrame() (image.Image, error) {
	if s.pos >= len(s.paths) {
		return nil, io.EOF
	}
	path := s.paths[s.pos]
	s.pos++

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening frame %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding frame %s: %w", path, err)
	}
	return img, nil
}

func (s *DirSource) FrameCount() int {
	return len(s.paths)
}
