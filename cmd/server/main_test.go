package main

import (
	"net/http"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestServe_ListenFailureIsReturned(t *testing.T) {
	server := &http.Server{Addr: "127.0.0.1:-1", Handler: http.NotFoundHandler()}
	quit := make(chan os.Signal, 1)

	done := make(chan error, 1)
	go func() { done <- serve(server, quit, time.Second) }()

	select {
	case err := <-done:
		require.Error(t, err)
		require.Contains(t, err.Error(), "ListenAndServe")
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after a listen failure")
	}
}

func TestServe_SignalShutsDown(t *testing.T) {
	server := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	quit := make(chan os.Signal, 1)
	quit <- syscall.SIGTERM

	require.NoError(t, serve(server, quit, time.Second))
}
