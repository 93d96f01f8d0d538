package importer

import (
	"errors"
	"os"
	"strings"

	"fjacquet/firefly-preimporter/internal/fileutils"
	"fjacquet/firefly-preimporter/internal/models"
)

// ErrOutputNotDirectory is returned when --output names a file but several
// inputs were found.
var ErrOutputNotDirectory = errors.New("--output must be a directory when processing multiple inputs")

// outputTargets is where the run writes its files. At most one field is set.
type outputTargets struct {
	csvFile     string
	dir         string
	payloadFile string
}

// resolveOutputTargets interprets --output. With the Firefly API it names the
// payload file. Otherwise it is a CSV file for a single job, or a directory
// when it ends with a separator, already is one, or several jobs were found.
func resolveOutputTargets(output string, jobCount int, fireflyMode bool) (outputTargets, error) {
	if output == "" {
		return outputTargets{}, nil
	}
	dirHint := strings.HasSuffix(output, string(os.PathSeparator)) || strings.HasSuffix(output, "/")
	path := fileutils.ExpandHome(output)

	if fireflyMode {
		return outputTargets{payloadFile: path}, nil
	}
	if jobCount == 1 {
		if dirHint || fileutils.DirectoryExists(path) {
			return outputTargets{dir: path}, nil
		}
		return outputTargets{csvFile: path}, nil
	}
	if fileutils.FileExists(path) {
		return outputTargets{}, ErrOutputNotDirectory
	}
	return outputTargets{dir: path}, nil
}

// csvDestination returns where the normalized CSV of job is written.
func (o outputTargets) csvDestination(job models.ProcessingJob) string {
	if o.csvFile != "" {
		return o.csvFile
	}
	return fileutils.SiblingPath(job.SourcePath, o.dir, models.OutputSuffix)
}

// hasCSVTarget reports whether --output redirected the CSV files.
func (o outputTargets) hasCSVTarget() bool {
	return o.csvFile != "" || o.dir != ""
}
