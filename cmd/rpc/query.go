package rpc

import (
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"github.com/volkshash/volkshash/lib"
	"github.com/volkshash/volkshash/quorum"
)

// HeightResult is the active chain tip
type HeightResult struct {
	Height uint64       `json:"height"`
	Hash   lib.HexBytes `json:"hash"`
}

// CommitmentResult is the identity of an accepted commitment
type CommitmentResult struct {
	Hash lib.HexBytes `json:"hash"`
}

// blockTemplateRequest carries the extra transactions of a block template
type blockTemplateRequest struct {
	Nonce        uint64             `json:"nonce"`
	Transactions []*lib.Transaction `json:"transactions,omitempty"`
}

// Version writes the software version
func (s *Server) Version(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	write(w, SoftwareVersion, http.StatusOK)
}

// Height responds with the active chain tip
func (s *Server) Height(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	tip := s.controller.Tip()
	write(w, &HeightResult{Height: tip.Height, Hash: tip.Hash}, http.StatusOK)
}

// Params responds with the quorum parameter table of the network
func (s *Server) Params(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	write(w, s.controller.Network(), http.StatusOK)
}

// Window describes the DKG instance of a quorum type at a height
func (s *Server) Window(w http.ResponseWriter, _ *http.Request, p httprouter.Params) {
	s.typeAndHeightParams(w, p, func(t quorum.Type, height uint64) (any, lib.ErrorI) {
		return s.controller.GetWindow(t, height)
	})
}

// Mined responds with the mined commitment of a DKG instance
func (s *Server) Mined(w http.ResponseWriter, _ *http.Request, p httprouter.Params) {
	t, err := quorum.ParseType(p.ByName("type"))
	if err != nil {
		write(w, err, http.StatusBadRequest)
		return
	}
	hash, err := lib.NewHexBytesFromString(p.ByName("hash"))
	if err != nil {
		write(w, err, http.StatusBadRequest)
		return
	}
	mined, err := s.controller.GetMinedCommitment(t, hash)
	if err != nil {
		write(w, err, http.StatusBadRequest)
		return
	}
	if mined == nil {
		write(w, ErrNotFound("mined commitment"), http.StatusNotFound)
		return
	}
	write(w, mined, http.StatusOK)
}

// Minable responds with the commitment a block at height would carry for the quorum type
func (s *Server) Minable(w http.ResponseWriter, _ *http.Request, p httprouter.Params) {
	s.typeAndHeightParams(w, p, func(t quorum.Type, height uint64) (any, lib.ErrorI) {
		qc, err := s.controller.GetMinableCommitment(t, height)
		if err != nil || qc == nil {
			return nil, err
		}
		return qc, nil
	})
}

// SubmitBlock connects a block and responds with the resulting tip
func (s *Server) SubmitBlock(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	block := new(lib.Block)
	if ok := unmarshal(w, r, block); !ok {
		return
	}
	if err := s.controller.SubmitBlock(block); err != nil {
		write(w, err, http.StatusBadRequest)
		return
	}
	s.Height(w, r, nil)
}

// Commitment submits a final commitment from a local DKG session as if it was gossiped
func (s *Server) Commitment(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	qc := new(quorum.FinalCommitment)
	if ok := unmarshal(w, r, qc); !ok {
		return
	}
	if err := s.controller.HandleCommitmentMessage("rpc/"+r.RemoteAddr, qc.Bytes()); err != nil {
		write(w, err, http.StatusBadRequest)
		return
	}
	write(w, &CommitmentResult{Hash: qc.Hash()}, http.StatusOK)
}

// BlockTemplate responds with the next block built on the tip, carrying the minable commitments
func (s *Server) BlockTemplate(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req := new(blockTemplateRequest)
	if ok := unmarshal(w, r, req); !ok {
		return
	}
	block, err := s.controller.NewBlockTemplate(req.Nonce, req.Transactions...)
	if err != nil {
		write(w, err, http.StatusInternalServerError)
		return
	}
	write(w, block, http.StatusOK)
}

// typeAndHeightParams is a helper function to abstract the workflow of a callback on a quorum type and height
// A nil result is written as not found
func (s *Server) typeAndHeightParams(w http.ResponseWriter, p httprouter.Params, callback func(t quorum.Type, height uint64) (any, lib.ErrorI)) {
	t, err := quorum.ParseType(p.ByName("type"))
	if err != nil {
		write(w, err, http.StatusBadRequest)
		return
	}
	height, e := strconv.ParseUint(p.ByName("height"), 10, 64)
	if e != nil {
		write(w, ErrInvalidArgs(e), http.StatusBadRequest)
		return
	}
	result, err := callback(t, height)
	if err != nil {
		write(w, err, http.StatusBadRequest)
		return
	}
	if result == nil {
		write(w, ErrNotFound("result"), http.StatusNotFound)
		return
	}
	write(w, result, http.StatusOK)
}
