package util

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// FrameFile represents a scene image file loaded from disk.
type FrameFile struct {
	// Path is the path to the image file.
	Path string
	// Data is the raw bytes of the image file.
	Data []byte
	// Frame is the frame number parsed from the file name, or its
	// position in lexical order when the name carries no number.
	Frame int
}

// LoadSceneFrames reads all image files from a directory, ordered by frame
// number when the names follow the frame-<N> convention and lexically
// otherwise.
func LoadSceneFrames(dir string) ([]FrameFile, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var frames []FrameFile
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		ext := filepath.Ext(file.Name())
		switch ext {
		case ".jpg", ".jpeg", ".png", ".bmp":
			imgPath := filepath.Join(dir, file.Name())
			data, readErr := os.ReadFile(imgPath)
			if readErr != nil {
				return nil, readErr
			}
			frame, err := strconv.Atoi(strings.TrimSuffix(strings.ReplaceAll(file.Name(), "frame-", ""), ext))
			if err != nil {
				frame = len(frames)
			}
			frames = append(frames, FrameFile{
				Path:  imgPath,
				Data:  data,
				Frame: frame,
			})
		}
	}

	sort.Slice(frames, func(i, j int) bool {
		return frames[i].Frame < frames[j].Frame
	})

	return frames, nil
}
