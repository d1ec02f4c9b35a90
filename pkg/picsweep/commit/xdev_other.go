//go:build !unix

package commit

func isCrossDevice(error) bool {
	return false
}
