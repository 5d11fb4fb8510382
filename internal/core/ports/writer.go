package ports

// FileWriter replaces files so that readers never observe partial content.
//
//go:generate mockgen -source=writer.go -destination=mocks/mock_writer.go -package=mocks
type FileWriter interface {
	// WriteFile replaces the file at path with data, creating parent directories as needed.
	WriteFile(path string, data []byte) error
}
