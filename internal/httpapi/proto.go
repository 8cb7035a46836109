package httpapi

import (
	"io"
	"net/http"
	"strings"

	"google.golang.org/protobuf/proto"
)

// maxRequestBody caps small JSON bodies such as heartbeats.
const maxRequestBody = 4096

// maxImageBody caps uploaded images and their base64 JSON wrapping.
const maxImageBody = 10 << 20

func isProtobufType(ct string) bool {
	switch ct {
	case "application/x-protobuf", "application/protobuf":
		return true
	}
	return false
}

// isProtobuf returns true if the request body is protobuf.
func isProtobuf(r *http.Request) bool {
	return isProtobufType(mediaType(r.Header.Get("Content-Type")))
}

// wantsProtobuf returns true if the client asked for a protobuf response.
func wantsProtobuf(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		if isProtobufType(mediaType(strings.TrimSpace(part))) {
			return true
		}
	}
	return false
}

// readProto reads at most limit bytes of the body and unmarshals them.
func readProto(r *http.Request, msg proto.Message, limit int64) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, limit))
	if err != nil {
		return err
	}
	return proto.Unmarshal(body, msg)
}

// writeProto marshals msg and writes it with the given HTTP status.
func writeProto(w http.ResponseWriter, status int, msg proto.Message) {
	data, err := proto.Marshal(msg)
	if err != nil {
		http.Error(w, "proto marshal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/x-protobuf")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
