package engine

import (
	"path/filepath"
	"strconv"
	"strings"
)

// getResultFolder builds the per-run output folder:
// <results>/<strategy>/<limit>Limit/<datafile>.
func getResultFolder(resultsFolder string, strategyName string, limitPips float64, dataPath string) string {
	limitFolder := strconv.FormatFloat(limitPips, 'f', -1, 64) + "Limit"
	dataFileName := strings.TrimSuffix(filepath.Base(dataPath), filepath.Ext(dataPath))

	return filepath.Join(resultsFolder, strategyName, limitFolder, dataFileName)
}
