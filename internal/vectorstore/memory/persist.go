package memory

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/rahulmurugan/fact-check/internal/docstore"
	"github.com/rahulmurugan/fact-check/internal/domain"
)

// File names of a persisted index. Both live in the same directory and are
// only valid together.
const (
	VectorsFile  = "index.bin"
	DocstoreFile = "docstore.db"
)

var blobMagic = [4]byte{'F', 'C', 'V', 'X'}

const blobVersion uint16 = 1

type blobHeader struct {
	Magic     [4]byte
	Version   uint16
	Metric    uint8
	_         uint8
	Dimension uint32
	Count     uint32
}

func metricCode(m domain.Metric) uint8 {
	if m == domain.MetricL2 {
		return 2
	}
	return 1
}

func metricFromCode(c uint8) (domain.Metric, error) {
	switch c {
	case 1:
		return domain.MetricInnerProduct, nil
	case 2:
		return domain.MetricL2, nil
	}
	return "", fmt.Errorf("%w: unknown metric code %d", domain.ErrCorruptIndex, c)
}

// Save writes the vector blob and the metadata store into dir.
func (x *Index) Save(ctx context.Context, dir string) error {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := x.writeBlob(filepath.Join(dir, VectorsFile)); err != nil {
		return err
	}
	return docstore.Write(ctx, filepath.Join(dir, DocstoreFile), x.metas)
}

func (x *Index) writeBlob(path string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	hdr := blobHeader{
		Magic:     blobMagic,
		Version:   blobVersion,
		Metric:    metricCode(x.metric),
		Dimension: uint32(x.dimension),
		Count:     uint32(len(x.vectors)),
	}
	err = binary.Write(w, binary.LittleEndian, hdr)
	for _, v := range x.vectors {
		if err != nil {
			break
		}
		err = binary.Write(w, binary.LittleEndian, v)
	}
	if err == nil {
		err = w.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return os.Rename(tmp, path)
}

// Load reads an index saved by Save. The stored metric must equal metric.
// The returned index is sealed.
func Load(ctx context.Context, dir string, metric domain.Metric) (*Index, error) {
	x, err := readBlob(filepath.Join(dir, VectorsFile))
	if err != nil {
		return nil, err
	}
	if x.metric != metric {
		return nil, fmt.Errorf("%w: index in %s uses metric %q, %q requested", domain.ErrInvalidConfig, dir, x.metric, metric)
	}
	store := filepath.Join(dir, DocstoreFile)
	n, err := docstore.Count(ctx, store)
	if err != nil {
		return nil, err
	}
	if n != len(x.vectors) {
		return nil, fmt.Errorf("%w: %d vectors but %d metadata rows", domain.ErrCorruptIndex, len(x.vectors), n)
	}
	metas, err := docstore.Read(ctx, store)
	if err != nil {
		return nil, err
	}
	if len(metas) != len(x.vectors) {
		return nil, fmt.Errorf("%w: %d vectors but %d metadata rows", domain.ErrCorruptIndex, len(x.vectors), len(metas))
	}
	x.metas = metas
	x.sealed = true
	return x, nil
}

func readBlob(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptIndex, err)
	}
	defer f.Close()
	r := bufio.NewReader(f)

	var hdr blobHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("%w: header of %s: %v", domain.ErrCorruptIndex, path, err)
	}
	if hdr.Magic != blobMagic || hdr.Version != blobVersion {
		return nil, fmt.Errorf("%w: %s is not a vector blob", domain.ErrCorruptIndex, path)
	}
	metric, err := metricFromCode(hdr.Metric)
	if err != nil {
		return nil, err
	}
	if hdr.Count > 0 && hdr.Dimension == 0 {
		return nil, fmt.Errorf("%w: %d vectors of dimension 0", domain.ErrCorruptIndex, hdr.Count)
	}
	x := &Index{metric: metric, dimension: int(hdr.Dimension)}
	x.vectors = make([][]float32, 0, hdr.Count)
	for i := uint32(0); i < hdr.Count; i++ {
		v := make([]float32, hdr.Dimension)
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return nil, fmt.Errorf("%w: vector %d of %s: %v", domain.ErrCorruptIndex, i, path, err)
		}
		for _, f := range v {
			if math.IsNaN(float64(f)) {
				return nil, fmt.Errorf("%w: vector %d holds NaN", domain.ErrCorruptIndex, i)
			}
		}
		x.vectors = append(x.vectors, v)
	}
	if _, err := r.ReadByte(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing bytes after %d vectors in %s", domain.ErrCorruptIndex, hdr.Count, path)
	}
	return x, nil
}
