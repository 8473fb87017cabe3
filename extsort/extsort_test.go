package extsort

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"testing"

	"github.com/Olex1313/mhs-db-join/row"
	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tempDir = "/tmp/extsort"

var codec = row.Codec{Separator: ","}

func firstField(r row.Row, _ int) (string, error) {
	return r[0], nil
}

func sortString(
	t *testing.T,
	fs afero.Fs,
	input string,
	chunkRows int,
) (*Result, []string) {
	res, err := Sort(fs, strings.NewReader(input), Options{
		Codec:     codec,
		Key:       firstField,
		ChunkRows: chunkRows,
		TempDir:   tempDir,
	})
	require.NoError(t, err)
	data, err := afero.ReadFile(fs, res.Path)
	require.NoError(t, err)
	out := strings.SplitAfter(string(data), "\n")
	return res, out[:len(out)-1]
}

func TestSortSmall(t *testing.T) {
	assert := assert.New(t)
	fs := afero.NewMemMapFs()

	res, out := sortString(t, fs, "c,1\na,2\nb,3\na,4\n", 3)
	assert.Equal([]string{"a,2\n", "a,4\n", "b,3\n", "c,1\n"}, out)
	assert.Equal(4, res.Rows)
	assert.Equal(2, res.Chunks)
	assert.Equal(2, res.Width)
	assert.Equal(int64(16), res.Bytes)
}

func TestSortMatchesStableSort(t *testing.T) {
	assert := assert.New(t)
	rnd := rand.New(rand.NewSource(1))

	for _, chunkRows := range []int{1, 2, 7, 64, 1000} {
		fs := afero.NewMemMapFs()
		lines := []string{}
		for i := 0; i < 200; i++ {
			lines = append(lines, fmt.Sprintf("k%02d,%d\n", rnd.Intn(30), i))
		}
		expect := append([]string{}, lines...)
		sort.SliceStable(expect, func(i, j int) bool {
			return strings.Split(expect[i], ",")[0] < strings.Split(expect[j], ",")[0]
		})

		res, out := sortString(t, fs, strings.Join(lines, ""), chunkRows)
		assert.Equal(expect, out, "chunk rows %d", chunkRows)
		assert.Equal(200, res.Rows)
		assert.Equal((200+chunkRows-1)/chunkRows, res.Chunks)

		// only the merged output is left behind
		entries, err := afero.ReadDir(fs, tempDir)
		require.NoError(t, err)
		assert.Len(entries, 1)
		assert.Equal(res.Path, tempDir+"/"+entries[0].Name())
	}
}

func TestSortEmpty(t *testing.T) {
	assert := assert.New(t)
	fs := afero.NewMemMapFs()

	res, out := sortString(t, fs, "", 4)
	assert.Empty(out)
	assert.Equal(0, res.Rows)
	assert.Equal(0, res.Chunks)
	assert.Equal(0, res.Width)
	assert.Equal(int64(0), res.Bytes)
}

func TestSortKeyError(t *testing.T) {
	assert := assert.New(t)
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll(tempDir, 0o755))
	bad := errors.New("bad key")

	_, err := Sort(fs, strings.NewReader("a\nb\nc\nd\n"), Options{
		Codec:     codec,
		ChunkRows: 1,
		TempDir:   tempDir,
		Key: func(r row.Row, line int) (string, error) {
			if line == 3 {
				return "", bad
			}
			return r[0], nil
		},
	})
	assert.True(errors.Is(err, bad))

	entries, err := afero.ReadDir(fs, tempDir)
	require.NoError(t, err)
	assert.Empty(entries)
}

func TestSortNeedsKey(t *testing.T) {
	_, err := Sort(afero.NewMemMapFs(), strings.NewReader("a\n"), Options{Codec: codec})
	assert.Error(t, err)
}
