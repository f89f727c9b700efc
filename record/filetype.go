// SPDX-License-Identifier: EPL-2.0

package record

import (
	"fmt"
	"path/filepath"
	"strings"
)

// FileType selects the container written by the default opener.
type FileType string

const (
	FileTypeWAV  FileType = "wav"
	FileTypeAIFF FileType = "aiff"
)

// FileTypeFromPath picks the file type from the extension of path.
func FileTypeFromPath(path string) (FileType, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav", ".wave":
		return FileTypeWAV, nil
	case ".aif", ".aiff", ".aifc":
		return FileTypeAIFF, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFileType, ext)
	}
}
