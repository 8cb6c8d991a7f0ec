package store

import (
	"github.com/utxoarchive/archive/errcode"
	"github.com/utxoarchive/archive/internal/linkage"
	"github.com/utxoarchive/archive/internal/schema"
	"github.com/utxoarchive/archive/internal/storage"
	"github.com/utxoarchive/archive/internal/table"
)

// openPair opens a table's .head/.body mapped files.
func (s *Store) openPair(name string) (head, body *storage.Mapped, err error) {
	head = storage.NewMapped(s.path(name+".head"), s.cfg.FileGrowthRate)
	body = storage.NewMapped(s.path(name+".body"), s.cfg.FileGrowthRate)
	if err = head.Open(); err != nil {
		return nil, nil, errcode.Wrapf(err, "store: open %s.head", name)
	}
	if err = body.Open(); err != nil {
		head.Close()
		return nil, nil, errcode.Wrapf(err, "store: open %s.body", name)
	}
	return head, body, nil
}

// openBody opens a nomap table's single body file: nomap tables have
// no head indexing at all.
func (s *Store) openBody(name string) (*storage.Mapped, error) {
	body := storage.NewMapped(s.path(name+".body"), s.cfg.FileGrowthRate)
	if err := body.Open(); err != nil {
		return nil, errcode.Wrapf(err, "store: open %s.body", name)
	}
	return body, nil
}

type headLifecycle interface {
	Create() error
	Verify() error
}

func createOrVerify(l headLifecycle, head *storage.Mapped) error {
	if head.Size() == 0 {
		return l.Create()
	}
	return l.Verify()
}

// openTables constructs and opens every configured table, reporting
// EventOpening/EventOpened around each.
func (s *Store) openTables() error {
	type step struct {
		name string
		fn   func() error
	}
	steps := []step{
		{"header", s.openHeader},
		{"point", s.openPoint},
		{"tx", s.openTx},
		{"output", s.openOutput},
		{"input", s.openInput},
		{"outs", s.openOuts},
		{"ins", s.openIns},
		{"txs", s.openTxs},
		{"candidate", s.openCandidate},
		{"confirmed", s.openConfirmed},
		{"strong_tx", s.openStrongTx},
		{"prevout", s.openPrevout},
		{"validated_bk", s.openValidatedBk},
		{"validated_tx", s.openValidatedTx},
		{"address", s.openAddress},
		{"filter_bk", s.openFilterBk},
		{"filter_tx", s.openFilterTx},
	}
	for _, st := range steps {
		s.report(EventOpening, st.name)
		if err := st.fn(); err != nil {
			return errcode.Wrapf(err, "store: open %s", st.name)
		}
		s.report(EventOpened, st.name)
	}
	return nil
}

func (s *Store) openHeader() error {
	head, body, err := s.openPair("header")
	if err != nil {
		return err
	}
	s.Header = table.NewHashMap[schema.Header]("header", head, body, schema.HeaderLinkWidth, s.cfg.Header.Buckets, 32, schema.HeaderCodec())
	s.bodies = append(s.bodies, head, body)
	s.headed = append(s.headed, s.Header)
	return createOrVerify(s.Header, head)
}

func (s *Store) openPoint() error {
	head, body, err := s.openPair("point")
	if err != nil {
		return err
	}
	s.Point = table.NewHashMap[schema.Point]("point", head, body, schema.PointLinkWidth, s.cfg.Point.Buckets, 32, schema.PointCodec())
	s.bodies = append(s.bodies, head, body)
	s.headed = append(s.headed, s.Point)
	if err := createOrVerify(s.Point, head); err != nil {
		return err
	}
	return s.ensureNullPoint()
}

// ensureNullPoint inserts the reserved null-hash point at link 0 on
// first create: link 0 is always the null hash, the convention
// get_spenders and coinbase inputs rely on.
func (s *Store) ensureNullPoint() error {
	if s.Point.Count() > 0 {
		return nil
	}
	var nullHash [32]byte
	_, err := s.Point.PutKey(nullHash[:], schema.Point{})
	return err
}

func (s *Store) openTx() error {
	head, body, err := s.openPair("tx")
	if err != nil {
		return err
	}
	s.Tx = table.NewHashMap[schema.Tx]("tx", head, body, schema.TxLinkWidth, s.cfg.Tx.Buckets, 32, schema.TxCodec())
	s.bodies = append(s.bodies, head, body)
	s.headed = append(s.headed, s.Tx)
	return createOrVerify(s.Tx, head)
}

func (s *Store) openOutput() error {
	body, err := s.openBody("output")
	if err != nil {
		return err
	}
	s.Output = table.NewNoMap[schema.Output]("output", body, schema.OutputLinkWidth, schema.OutputCodec())
	s.bodies = append(s.bodies, body)
	return s.Output.Verify()
}

func (s *Store) openInput() error {
	body, err := s.openBody("input")
	if err != nil {
		return err
	}
	s.Input = table.NewNoMap[schema.Input]("input", body, schema.InputLinkWidth, schema.InputCodec())
	s.bodies = append(s.bodies, body)
	return s.Input.Verify()
}

func (s *Store) openOuts() error {
	body, err := s.openBody("outs")
	if err != nil {
		return err
	}
	s.Outs = table.NewNoMap[linkage.Link]("outs", body, schema.OutsFkWidth, schema.OutsCodec())
	s.bodies = append(s.bodies, body)
	return s.Outs.Verify()
}

func (s *Store) openIns() error {
	body, err := s.openBody("ins")
	if err != nil {
		return err
	}
	s.Ins = table.NewNoMap[linkage.Link]("ins", body, schema.InsFkWidth, schema.InsCodec())
	s.bodies = append(s.bodies, body)
	return s.Ins.Verify()
}

func (s *Store) openTxs() error {
	head, body, err := s.openPair("txs")
	if err != nil {
		return err
	}
	s.Txs = table.NewArrayMap[schema.Txs]("txs", head, body, schema.TxsLinkWidth, s.cfg.Txs.Buckets, schema.TxsCodec())
	s.bodies = append(s.bodies, head, body)
	s.headed = append(s.headed, s.Txs)
	return createOrVerify(s.Txs, head)
}

func (s *Store) openCandidate() error {
	head, body, err := s.openPair("candidate")
	if err != nil {
		return err
	}
	s.Candidate = table.NewArrayMap[schema.HeightEntry]("candidate", head, body, schema.CandidateLinkWidth, s.cfg.Candidate.Buckets, schema.HeightEntryCodec())
	s.bodies = append(s.bodies, head, body)
	s.headed = append(s.headed, s.Candidate)
	return createOrVerify(s.Candidate, head)
}

func (s *Store) openConfirmed() error {
	head, body, err := s.openPair("confirmed")
	if err != nil {
		return err
	}
	s.Confirmed = table.NewArrayMap[schema.HeightEntry]("confirmed", head, body, schema.ConfirmedLinkWidth, s.cfg.Confirmed.Buckets, schema.HeightEntryCodec())
	s.bodies = append(s.bodies, head, body)
	s.headed = append(s.headed, s.Confirmed)
	return createOrVerify(s.Confirmed, head)
}

func (s *Store) openStrongTx() error {
	head, body, err := s.openPair("strong_tx")
	if err != nil {
		return err
	}
	s.StrongTx = table.NewHashMap[schema.StrongTx]("strong_tx", head, body, schema.StrongTxLinkWidth, s.cfg.StrongTx.Buckets, int(schema.TxLinkWidth), schema.StrongTxCodec())
	s.bodies = append(s.bodies, head, body)
	s.headed = append(s.headed, s.StrongTx)
	return createOrVerify(s.StrongTx, head)
}

func (s *Store) openPrevout() error {
	head, body, err := s.openPair("prevout")
	if err != nil {
		return err
	}
	s.Prevout = table.NewArrayMap[schema.Prevout]("prevout", head, body, schema.PrevoutLinkWidth, s.cfg.Prevout.Buckets, schema.PrevoutCodec())
	s.bodies = append(s.bodies, head, body)
	s.headed = append(s.headed, s.Prevout)
	return createOrVerify(s.Prevout, head)
}

func (s *Store) openValidatedBk() error {
	head, body, err := s.openPair("validated_bk")
	if err != nil {
		return err
	}
	s.ValidatedBk = table.NewHashMap[schema.ValidatedBk]("validated_bk", head, body, schema.ValidatedLinkWidth, s.cfg.ValidatedBk.Buckets, int(schema.HeaderLinkWidth), schema.ValidatedBkCodec())
	s.bodies = append(s.bodies, head, body)
	s.headed = append(s.headed, s.ValidatedBk)
	return createOrVerify(s.ValidatedBk, head)
}

func (s *Store) openValidatedTx() error {
	head, body, err := s.openPair("validated_tx")
	if err != nil {
		return err
	}
	s.ValidatedTx = table.NewHashMap[schema.ValidatedTx]("validated_tx", head, body, schema.ValidatedLinkWidth, s.cfg.ValidatedTx.Buckets, int(schema.TxLinkWidth), schema.ValidatedTxCodec())
	s.bodies = append(s.bodies, head, body)
	s.headed = append(s.headed, s.ValidatedTx)
	return createOrVerify(s.ValidatedTx, head)
}

// openAddress/openFilterBk/openFilterTx are optional indexes: a
// zero-width configuration leaves the table nil and every query-layer
// caller must check for that before use.

func (s *Store) openAddress() error {
	if s.cfg.AddressBits == 0 {
		return nil
	}
	head, body, err := s.openPair("address")
	if err != nil {
		return err
	}
	buckets := uint64(1) << s.cfg.AddressBits
	s.Address = table.NewHashMap[schema.AddressEntry]("address", head, body, schema.AddressLinkWidth, buckets, 32, schema.AddressCodec())
	s.bodies = append(s.bodies, head, body)
	s.headed = append(s.headed, s.Address)
	return createOrVerify(s.Address, head)
}

func (s *Store) openFilterBk() error {
	if s.cfg.NeutrinoBits == 0 {
		return nil
	}
	head, body, err := s.openPair("filter_bk")
	if err != nil {
		return err
	}
	buckets := uint64(1) << s.cfg.NeutrinoBits
	s.FilterBk = table.NewArrayMap[schema.FilterBk]("filter_bk", head, body, schema.FilterBkLinkWidth, buckets, schema.FilterBkCodec())
	s.bodies = append(s.bodies, head, body)
	s.headed = append(s.headed, s.FilterBk)
	return createOrVerify(s.FilterBk, head)
}

func (s *Store) openFilterTx() error {
	if s.cfg.NeutrinoBits == 0 {
		return nil
	}
	head, body, err := s.openPair("filter_tx")
	if err != nil {
		return err
	}
	buckets := uint64(1) << s.cfg.NeutrinoBits
	s.FilterTx = table.NewArrayMap[schema.FilterTx]("filter_tx", head, body, schema.FilterTxLinkWidth, buckets, schema.FilterTxCodec())
	s.bodies = append(s.bodies, head, body)
	s.headed = append(s.headed, s.FilterTx)
	return createOrVerify(s.FilterTx, head)
}
