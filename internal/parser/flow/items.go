package flow

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rezonia/invoice-extractor/internal/decimal"
	"github.com/rezonia/invoice-extractor/internal/model"
)

// Block offsets relative to a line-item anchor. The delivery/pricing block
// has no fixed offset: an unbounded run of trim and lining text sits between
// the origin block and the delivery marker, so that block is located by a
// bounded forward search instead.
const (
	offSize   = 1
	offQty    = 2
	offOrigin = 3
	offSearch = 4
	offDescr  = 5

	// searchCap bounds the forward search after the final anchor, where no
	// following anchor limits the scan.
	searchCap = 100
)

// WalkPageItems runs the line-item walker over one page's text on behalf of
// another layout adapter. Emitted items reference header and land in inv.
func WalkPageItems(page model.RawPage, header *model.InvoiceHeader, inv *model.ParsedInvoice) {
	walkItems(walkBlocks(page.Text), header, page.PageIndex, inv)
}

// walkItems scans the block sequence for line-item anchors and emits one
// LineItem per anchor that carries a well-formed quantity. Every emitted
// item references the shared document header.
func walkItems(blocks []string, header *model.InvoiceHeader, pageIndex int, inv *model.ParsedInvoice) {
	var anchors []int
	for i, b := range blocks {
		if reAnchor.MatchString(b) {
			anchors = append(anchors, i)
		}
	}

	for n := range anchors {
		item, ok := extractItem(blocks, anchors, n, pageIndex, inv)
		if !ok {
			continue
		}
		item.Header = header
		inv.Items = append(inv.Items, item)
	}
}

// extractItem pulls one line item from the blocks around anchors[n]. A
// missing or malformed quantity disqualifies the anchor; every other field
// degrades to its absent value on its own.
func extractItem(blocks []string, anchors []int, n, pageIndex int, inv *model.ParsedInvoice) (model.LineItem, bool) {
	i := anchors[n]
	item := model.LineItem{StyleColor: reAnchor.FindString(blocks[i])}

	if b, ok := blockAt(blocks, i+offDescr); ok {
		item.StyleColorDescr = strings.TrimSpace(b)
	}
	if b, ok := blockAt(blocks, i+offSize); ok {
		if s, ok := findPattern(reSize, strings.TrimSpace(afterLastLabel(b, "Qty"))); ok {
			item.Size = s
		}
	}

	qtyBlock, ok := blockAt(blocks, i+offQty)
	qty, err := strconv.Atoi(strings.TrimSpace(qtyBlock))
	if !ok || err != nil || qty < 0 {
		inv.AddWarning(model.CodeFieldMalformed, pageIndex, "qty",
			fmt.Sprintf("anchor %s dropped: quantity is not a non-negative integer", item.StyleColor))
		return item, false
	}
	item.Qty = qty

	if b, ok := blockAt(blocks, i+offOrigin); ok {
		origin := DecomposeOrigin(strings.TrimSpace(beforeLabel(b, originLabel)))
		item.ProductFamily = origin.Family
		item.CountryOfOrigin = origin.Country
	}

	start := i + offSearch
	limit := searchCap
	if n+1 < len(anchors) {
		limit = anchors[n+1] - i
	}
	found := -1
	for off := 0; off < limit && start+off < len(blocks); off++ {
		if strings.Contains(blocks[start+off], deliveryMarker) {
			found = start + off
			break
		}
	}
	if found < 0 {
		inv.AddWarning(model.CodeAnchorSearchExhausted, pageIndex, "delivery_id",
			fmt.Sprintf("no delivery marker within %d blocks of anchor %s", limit, item.StyleColor))
		return item, true
	}

	resolveDeliveryBlock(&item, blocks, start, found)
	return item, true
}

// resolveDeliveryBlock extracts the trailing fields once the delivery block
// is located: the certification flag, the tariff and delivery codes read
// backwards from their labels, the free-text trim description, and the two
// final price tokens.
func resolveDeliveryBlock(item *model.LineItem, blocks []string, start, found int) {
	block := blocks[found]
	_, afterDelivery, _ := strings.Cut(block, deliveryMarker)
	afterDelivery = strings.TrimSpace(afterDelivery)
	item.RDSCertified = strings.Contains(afterDelivery, rdsMarker)

	tariffText := strings.TrimSpace(beforeLabel(block, tariffLabel))
	if len(tariffText) >= 12 && reTariff.MatchString(tariffText[len(tariffText)-12:]) {
		item.TariffCode = tariffText[len(tariffText)-12:]
	}

	deliveryText := strings.TrimSpace(beforeLabel(block, deliveryLabel))
	if len(deliveryText) >= 10 && isDigits(deliveryText[len(deliveryText)-10:]) {
		item.DeliveryID = deliveryText[len(deliveryText)-10:]
	}

	descr := beforeLabel(strings.TrimSpace(joinRange(blocks, start, found+1)), tariffLabel)
	if item.TariffCode != "" {
		if len(descr) >= 12 {
			descr = descr[:len(descr)-12]
		} else {
			descr = ""
		}
	}
	item.OtherDescr = descr

	if fields := strings.Fields(afterDelivery); len(fields) >= 2 {
		item.Price = decimal.FromStringOrZero(fields[len(fields)-2])
		item.ExtPrice = decimal.FromStringOrZero(fields[len(fields)-1])
	}
}
