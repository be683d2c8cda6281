package certfile

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreatePEMFromStrings(t *testing.T) {
	pem, err := CreatePEM([]string{"AAAA", "BBBB"})
	require.NoError(t, err)
	require.Contains(t, pem, pemHeader)
	require.Contains(t, pem, pemFooter)
	require.Contains(t, pem, "AAAA")
}

func TestCreatePEMEmptyElementFails(t *testing.T) {
	_, err := CreatePEM([]string{"AAAA", ""})
	require.ErrorIs(t, err, ErrEmptyElement)
}

func TestExtractHexData(t *testing.T) {
	pem := pemHeader + "\nAAAA\nBBBB\n" + pemFooter + "\n"
	require.Equal(t, "AAAA\nBBBB", ExtractHexData(pem))
}

func TestExtractHexDataIgnoresBlankLines(t *testing.T) {
	pem := "\n" + pemHeader + "\n\nAAAA\n\n" + pemFooter + "\n\n"
	require.Equal(t, "AAAA", ExtractHexData(pem))
}

func TestExtractHexDataMismatchedPairing(t *testing.T) {
	require.Equal(t, "", ExtractHexData("AAAA\n"+pemFooter))
	require.Equal(t, "", ExtractHexData(pemHeader+"\nAAAA"))
}

func TestFileLifecycle(t *testing.T) {
	f, err := New(t.TempDir())
	require.NoError(t, err)

	p1, err := f.CreatePEMFromStrings([]string{"AAAA"})
	require.NoError(t, err)
	require.FileExists(t, p1)

	p2, err := f.CreatePEMFromStrings([]string{"BBBB"})
	require.NoError(t, err)
	require.NotEqual(t, p1, p2)
	require.NoFileExists(t, p1)
	require.FileExists(t, p2)

	require.NoError(t, f.Close())
	require.NoFileExists(t, p2)
	require.Equal(t, "", f.Path())
}

func TestInvalidInputDoesNotDeletePrevious(t *testing.T) {
	f, err := New(t.TempDir())
	require.NoError(t, err)

	p1, err := f.CreatePEMFromStrings([]string{"AAAA"})
	require.NoError(t, err)

	_, err = f.CreatePEMFromStrings([]string{"AAAA", ""})
	require.Error(t, err)
	require.FileExists(t, p1)
	require.Equal(t, p1, f.Path())
}

func TestDERFromValidPEM(t *testing.T) {
	f, err := New(t.TempDir())
	require.NoError(t, err)

	encoded := "aGVsbG8td29ybGQ=" // base64("hello-world")
	pem := pemHeader + "\n" + encoded + "\n" + pemFooter + "\n"

	path, err := f.CreateDERFromPEM(pem)
	require.NoError(t, err)
	require.FileExists(t, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "hello-world", string(data))
}

func TestDERDecodeFailureLeavesNoFile(t *testing.T) {
	f, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = f.CreateDERFromPEM(pemHeader + "\nnot-valid-base64!!\n" + pemFooter)
	require.Error(t, err)
	require.Equal(t, "", f.Path())
}
