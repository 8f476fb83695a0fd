package rpc

import (
	"errors"
	"fmt"

	"github.com/volkshash/volkshash/lib"
)

func ErrServerTimeout() lib.ErrorI {
	return lib.NewError(lib.CodeRPCTimeout, lib.RPCModule, "server timeout")
}

func ErrInvalidArgs(err error) lib.ErrorI {
	return lib.NewError(lib.CodeInvalidArgs, lib.RPCModule, fmt.Sprintf("invalid args: %s", err.Error()))
}

func ErrNotFound(what string) lib.ErrorI {
	return lib.NewError(lib.CodeRPCNotFound, lib.RPCModule, fmt.Sprintf("%s not found", what))
}

func ErrServerStop(err error) lib.ErrorI {
	return lib.NewError(lib.CodeRPCServerStop, lib.RPCModule, fmt.Sprintf("rpc server stopped with err: %s", err.Error()))
}

func ErrPostRequest(err error) lib.ErrorI {
	return lib.NewError(lib.CodePostRequest, lib.RPCModule, fmt.Sprintf("http.Post() failed with err: %s", err.Error()))
}

func ErrGetRequest(err error) lib.ErrorI {
	return lib.NewError(lib.CodeGetRequest, lib.RPCModule, fmt.Sprintf("http.Get() failed with err: %s", err.Error()))
}

func ErrHttpStatus(status string, statusCode int, body []byte) lib.ErrorI {
	return lib.NewError(lib.CodeHttpStatus, lib.RPCModule, fmt.Sprintf("http response bad status %s with code %d and body %s", status, statusCode, body))
}

func ErrReadBody(err error) lib.ErrorI {
	return lib.NewError(lib.CodeReadBody, lib.RPCModule, fmt.Sprintf("io.ReadAll(http.ResponseBody) failed with err: %s", err.Error()))
}

func ErrResourceUsage(err error) lib.ErrorI {
	if err == nil {
		err = errors.New("no usage reported")
	}
	return lib.NewError(lib.CodeResourceUsage, lib.RPCModule, fmt.Sprintf("resource usage failed with err: %s", err.Error()))
}
