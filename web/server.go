// Package web serves a small JSON viewer over a vault: asset listing,
// animation dumps and editor timeline download/upload.
package web

import (
	"net/http"
	"os"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/mirozey/animvault/vault"
)

type Server struct {
	vault *vault.Vault
}

func StartServer(addr string, v *vault.Vault) error {
	s := &Server{vault: v}

	r := mux.NewRouter()
	r.HandleFunc("/json/assets", s.HandlerListAssets)
	r.HandleFunc("/json/asset/{id}", s.HandlerAssetInfo)
	r.HandleFunc("/dump/asset/{id}/chunk/{index}", s.HandlerDumpChunk)
	r.HandleFunc("/dump/asset/{id}/timeline", s.HandlerDumpTimeline)
	r.HandleFunc("/upload/asset/{id}/timeline", s.HandlerUploadTimeline)

	h := handlers.RecoveryHandler()(r)
	h = handlers.LoggingHandler(os.Stdout, h)

	logrus.Infof("Starting server %v", addr)

	return http.ListenAndServe(addr, h)
}
