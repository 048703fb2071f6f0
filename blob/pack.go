package blob

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"slices"

	"vsmrt/stream"
	"vsmrt/typeindex"
)

const (
	signature        = "VSRD"
	containerVersion = 1
)

type sectionID uint32

const (
	sectionStrings sectionID = iota + 1
	sectionTokens
	sectionNodes
	sectionData
	sectionConditionals
	sectionCount = int(sectionConditionals)
)

type header struct {
	Signature [4]byte
	Version   uint16
	TypeIndex uint16
	OSVersion uint32
	ID        [16]byte
	HeaderLen uint32
}

type sectionRow struct {
	ID     uint32
	Offset uint32
	Size   uint32
}

var headerSize = binary.Size(header{}) + sectionCount*binary.Size(sectionRow{})

// Pack serializes b.
//
// Layout: header -> section table -> strings -> tokens -> nodes -> data -> conditionals
func Pack(b *Blob) ([]byte, error) {
	if err := typeindex.Validate(b.TypeIndex); err != nil {
		return nil, err
	}

	// conditionals may intern new strings, encode them first
	strs := stream.NewStringTable()
	for _, s := range b.Strings {
		strs.Intern(s)
	}
	cw := stream.NewWriter(strs, nil, b.OSVersion)
	if err := cw.PersistCount(len(b.condOrder)); err != nil {
		return nil, err
	}
	for _, tok := range b.condOrder {
		cw.PersistUint32(uint32(tok))
		if err := stream.Serialize(cw, b.conditionals[tok]); err != nil {
			return nil, fmt.Errorf("conditional %v: %w", tok, err)
		}
	}

	sw := stream.NewWriter(nil, nil, b.OSVersion)
	if err := sw.PersistCount(strs.Len()); err != nil {
		return nil, err
	}
	for _, s := range strs.Strings() {
		if err := sw.PersistBytes([]byte(s)); err != nil {
			return nil, err
		}
	}

	tw := stream.NewWriter(nil, nil, b.OSVersion)
	if !slices.IsSorted(b.Tokens) {
		return nil, fmt.Errorf("blob: token offsets are not sorted")
	}
	if err := stream.Serialize(tw, b.Tokens); err != nil {
		return nil, err
	}

	sections := []struct {
		id   sectionID
		data []byte
	}{
		{sectionStrings, sw.Bytes()},
		{sectionTokens, tw.Bytes()},
		{sectionNodes, b.Nodes},
		{sectionData, b.Data},
		{sectionConditionals, cw.Bytes()},
	}

	out := bytes.Buffer{}
	h := header{
		Version:   containerVersion,
		TypeIndex: uint16(b.TypeIndex),
		OSVersion: uint32(b.OSVersion),
		ID:        b.ID,
		HeaderLen: uint32(headerSize),
	}
	copy(h.Signature[:], signature)
	if err := binary.Write(&out, binary.LittleEndian, &h); err != nil {
		return nil, err
	}
	offset := uint32(headerSize)
	for _, s := range sections {
		row := sectionRow{ID: uint32(s.id), Offset: offset, Size: uint32(len(s.data))}
		if err := binary.Write(&out, binary.LittleEndian, &row); err != nil {
			return nil, err
		}
		offset += row.Size
	}
	for _, s := range sections {
		if _, err := out.Write(s.data); err != nil {
			return nil, err
		}
	}
	return out.Bytes(), nil
}

// Unpack parses a packed blob. Anything this reader cannot fully interpret,
// an unknown type index included, is an error.
func Unpack(data []byte) (*Blob, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("blob: too small")
	}
	rd := bytes.NewReader(data)
	var h header
	if err := binary.Read(rd, binary.LittleEndian, &h); err != nil {
		return nil, err
	}
	if string(h.Signature[:]) != signature {
		return nil, fmt.Errorf("blob: invalid signature %q", string(h.Signature[:]))
	}
	if h.Version != containerVersion {
		return nil, fmt.Errorf("blob: unsupported version %d", h.Version)
	}
	if int(h.HeaderLen) != headerSize {
		return nil, fmt.Errorf("blob: header_len %d, expected %d", h.HeaderLen, headerSize)
	}
	ti := typeindex.TypeIndex(h.TypeIndex)
	if err := typeindex.Validate(ti); err != nil {
		return nil, fmt.Errorf("blob: %w", err)
	}

	var raw [sectionCount + 1][]byte
	for range sectionCount {
		var row sectionRow
		if err := binary.Read(rd, binary.LittleEndian, &row); err != nil {
			return nil, err
		}
		if row.ID == 0 || int(row.ID) > sectionCount || raw[row.ID] != nil {
			return nil, fmt.Errorf("blob: unexpected section %d", row.ID)
		}
		end := uint64(row.Offset) + uint64(row.Size)
		if row.Offset < h.HeaderLen || end > uint64(len(data)) {
			return nil, fmt.Errorf("blob: section %d out of range", row.ID)
		}
		raw[row.ID] = data[row.Offset:end:end]
	}

	b := &Blob{
		ID:        h.ID,
		TypeIndex: ti,
		OSVersion: typeindex.OSVersion(h.OSVersion),
		Nodes:     raw[sectionNodes],
		Data:      raw[sectionData],
	}

	sr := stream.NewReader(raw[sectionStrings], nil, nil)
	n, err := sr.ReadCount()
	if err != nil {
		return nil, fmt.Errorf("blob: strings: %w", err)
	}
	b.Strings = make([]string, 0, n)
	for range n {
		s, err := sr.ReadBytes()
		if err != nil {
			return nil, fmt.Errorf("blob: strings: %w", err)
		}
		b.Strings = append(b.Strings, string(s))
	}

	tr := stream.NewReader(raw[sectionTokens], nil, nil)
	if b.Tokens, err = stream.Deserialize[[]uint32](tr); err != nil {
		return nil, fmt.Errorf("blob: tokens: %w", err)
	}
	for i, off := range b.Tokens {
		if int(off) >= len(b.Nodes) || (i > 0 && b.Tokens[i-1] >= off) {
			return nil, fmt.Errorf("blob: token table entry %d (%d) is invalid", i, off)
		}
	}

	cr := stream.NewReader(raw[sectionConditionals], b.Strings, nil)
	if n, err = cr.ReadCount(); err != nil {
		return nil, fmt.Errorf("blob: conditionals: %w", err)
	}
	for range n {
		tok, err := cr.ReadToken()
		if err != nil {
			return nil, fmt.Errorf("blob: conditionals: %w", err)
		}
		if _, ok := slices.BinarySearch(b.Tokens, uint32(tok)); !ok {
			return nil, fmt.Errorf("blob: conditional object %v is not a token", tok)
		}
		preds, err := stream.Deserialize[[]stream.PredicateAndArgs](cr)
		if err != nil {
			return nil, fmt.Errorf("blob: conditionals: %w", err)
		}
		if _, dup := b.conditionals[tok]; dup {
			return nil, fmt.Errorf("blob: conditional object %v recorded twice", tok)
		}
		b.AddConditional(tok, preds)
	}
	return b, nil
}
