package rpc

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/volkshash/volkshash/controller"
	"github.com/volkshash/volkshash/lib"
	"github.com/volkshash/volkshash/quorum"
)

type Client struct {
	rpcURL string
	client http.Client
}

// NewClient() creates a client of the rpc served at rpcURL, on rpcPort if not empty
func NewClient(rpcURL, rpcPort string) *Client {
	if rpcURL == "" {
		rpcURL = "http://" + localhost
	}
	if rpcPort != "" {
		rpcURL += colon + rpcPort
	}
	return &Client{rpcURL: rpcURL}
}

func (c *Client) Version() (version *string, err lib.ErrorI) {
	version = new(string)
	err = c.get(VersionRouteName, nil, version)
	return
}

func (c *Client) Height() (p *HeightResult, err lib.ErrorI) {
	p = new(HeightResult)
	err = c.get(HeightRouteName, nil, p)
	return
}

func (c *Client) Params() (p *quorum.NetworkParams, err lib.ErrorI) {
	p = new(quorum.NetworkParams)
	err = c.get(ParamsRouteName, nil, p)
	return
}

func (c *Client) Window(t string, height uint64) (p *quorum.Window, err lib.ErrorI) {
	p = new(quorum.Window)
	err = c.get(WindowRouteName, map[string]string{"type": t, "height": fmt.Sprint(height)}, p)
	return
}

func (c *Client) Mined(t, quorumHash string) (p *controller.MinedCommitment, err lib.ErrorI) {
	p = new(controller.MinedCommitment)
	err = c.get(MinedRouteName, map[string]string{"type": t, "hash": quorumHash}, p)
	return
}

func (c *Client) Minable(t string, height uint64) (p *quorum.FinalCommitment, err lib.ErrorI) {
	p = new(quorum.FinalCommitment)
	err = c.get(MinableRouteName, map[string]string{"type": t, "height": fmt.Sprint(height)}, p)
	return
}

func (c *Client) SubmitBlock(block *lib.Block) (p *HeightResult, err lib.ErrorI) {
	p = new(HeightResult)
	err = c.postJSON(SubmitBlockRouteName, block, p)
	return
}

func (c *Client) SubmitCommitment(qc *quorum.FinalCommitment) (p *CommitmentResult, err lib.ErrorI) {
	p = new(CommitmentResult)
	err = c.postJSON(CommitmentRouteName, qc, p)
	return
}

func (c *Client) BlockTemplate(nonce uint64, txs ...*lib.Transaction) (p *lib.Block, err lib.ErrorI) {
	p = new(lib.Block)
	err = c.postJSON(BlockTemplateRouteName, blockTemplateRequest{Nonce: nonce, Transactions: txs}, p)
	return
}

func (c *Client) ResourceUsage() (p *ResourceUsageResult, err lib.ErrorI) {
	p = new(ResourceUsageResult)
	err = c.get(ResourceUsageRouteName, nil, p)
	return
}

func (c *Client) url(routeName string, params map[string]string) string {
	path := routePaths[routeName].Path
	for k, v := range params {
		path = strings.Replace(path, colon+k, v, 1)
	}
	return c.rpcURL + path
}

func (c *Client) postJSON(routeName string, request, ptr any) lib.ErrorI {
	bz, err := lib.MarshalJSON(request)
	if err != nil {
		return err
	}
	return c.post(routeName, bz, ptr)
}

func (c *Client) post(routeName string, json []byte, ptr any) lib.ErrorI {
	resp, err := c.client.Post(c.url(routeName, nil), ApplicationJSON, bytes.NewBuffer(json))
	if err != nil {
		return ErrPostRequest(err)
	}
	return c.unmarshal(resp, ptr)
}

func (c *Client) get(routeName string, params map[string]string, ptr any) lib.ErrorI {
	resp, err := c.client.Get(c.url(routeName, params))
	if err != nil {
		return ErrGetRequest(err)
	}
	return c.unmarshal(resp, ptr)
}

func (c *Client) unmarshal(resp *http.Response, ptr any) lib.ErrorI {
	defer func() { _ = resp.Body.Close() }()
	bz, err := io.ReadAll(resp.Body)
	if err != nil {
		return ErrReadBody(err)
	}
	if resp.StatusCode != http.StatusOK {
		return ErrHttpStatus(resp.Status, resp.StatusCode, bz)
	}
	return lib.UnmarshalJSON(bz, ptr)
}
