package commitment

import (
	"bytes"
	"encoding/binary"
	"math"
	"sort"

	"github.com/financoor/backend/src/models"
)

// canonicalVersion tags the byte layout so it can evolve without silently
// colliding with older commitments.
const canonicalVersion = 0x01

// EncodeCanonical serializes the request into its canonical byte form:
// fixed field order, big-endian fixed-width integers, uint32 length prefixes
// on variable fields. Wallets and prices are sorted, and ledger rows are
// sorted by (block_time, chain_id, tx_hash, asset, direction) with ties
// broken by the full encoded row bytes, a total order, so two requests that
// differ only in input ordering produce identical bytes and therefore
// identical commitments.
func EncodeCanonical(req *models.TaxRequest) ([]byte, error) {
	code, err := req.UserType.Code()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteByte(canonicalVersion)
	buf.WriteByte(code)
	writeBool(&buf, req.Use44ADA)
	writeString(&buf, req.USDINRRate)

	wallets := append([]string(nil), req.Wallets...)
	sort.Strings(wallets)
	writeUint32(&buf, uint32(len(wallets)))
	for _, w := range wallets {
		writeString(&buf, w)
	}

	rows := append([]models.LedgerRow(nil), req.Ledger...)
	encoded := make([][]byte, len(rows))
	for i := range rows {
		var rb bytes.Buffer
		writeRow(&rb, &rows[i])
		encoded[i] = rb.Bytes()
	}
	sort.Sort(&rowOrder{rows: rows, encoded: encoded})
	writeUint32(&buf, uint32(len(rows)))
	for i := range rows {
		buf.Write(encoded[i])
	}

	prices := append([]models.PriceEntry(nil), req.Prices...)
	sort.Slice(prices, func(i, j int) bool { return prices[i].Asset < prices[j].Asset })
	writeUint32(&buf, uint32(len(prices)))
	for _, p := range prices {
		writeString(&buf, p.Asset)
		writeString(&buf, p.USDPrice)
	}

	return buf.Bytes(), nil
}

// rowOrder sorts rows by (block_time, chain_id, tx_hash, asset, direction),
// breaking any remaining tie with the encoded row bytes. Rows identical in
// all five keys (one transaction emitting several transfers of the same
// asset) would otherwise keep their input-relative order and leak it into
// the commitment.
type rowOrder struct {
	rows    []models.LedgerRow
	encoded [][]byte
}

func (o *rowOrder) Len() int { return len(o.rows) }

func (o *rowOrder) Swap(i, j int) {
	o.rows[i], o.rows[j] = o.rows[j], o.rows[i]
	o.encoded[i], o.encoded[j] = o.encoded[j], o.encoded[i]
}

func (o *rowOrder) Less(i, j int) bool {
	a, b := &o.rows[i], &o.rows[j]
	if a.BlockTime != b.BlockTime {
		return a.BlockTime < b.BlockTime
	}
	if a.ChainID != b.ChainID {
		return a.ChainID < b.ChainID
	}
	if a.TxHash != b.TxHash {
		return a.TxHash < b.TxHash
	}
	if a.Asset != b.Asset {
		return a.Asset < b.Asset
	}
	if a.Direction != b.Direction {
		return a.Direction < b.Direction
	}
	return bytes.Compare(o.encoded[i], o.encoded[j]) < 0
}

func writeRow(buf *bytes.Buffer, row *models.LedgerRow) {
	writeUint64(buf, row.ChainID)
	writeString(buf, row.OwnerWallet)
	writeString(buf, row.TxHash)
	writeUint64(buf, row.BlockTime)
	writeString(buf, row.Asset)
	writeString(buf, row.Amount)
	buf.WriteByte(row.Decimals)
	writeString(buf, string(row.Direction))
	writeBool(buf, row.Counterparty != "")
	if row.Counterparty != "" {
		writeString(buf, row.Counterparty)
	}
	writeString(buf, string(row.Category))
	// Confidence is committed as raw IEEE-754 bits; no float arithmetic is
	// performed on it anywhere.
	writeUint32(buf, math.Float32bits(row.Confidence))
	writeBool(buf, row.UserOverride)
}

func writeString(buf *bytes.Buffer, s string) {
	writeUint32(buf, uint32(len(s)))
	buf.WriteString(s)
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeUint64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func writeBool(buf *bytes.Buffer, v bool) {
	if v {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
}
