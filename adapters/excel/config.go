package excel

// ExcelConfig holds configuration for spreadsheet metrics sources
type ExcelConfig struct {
	FilePath string `json:"file_path"`
	// Sheet is read from xlsx workbooks; ignored for csv
	Sheet string `json:"sheet"`
	// TargetColumn names the target id column; detected when empty
	TargetColumn string `json:"target_column"`
}

// DefaultExcelConfig returns sensible defaults for spreadsheet reading
func DefaultExcelConfig(filePath string) ExcelConfig {
	return ExcelConfig{
		FilePath: filePath,
		Sheet:    "Sheet1",
	}
}
