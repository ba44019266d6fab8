package grpc

import (
	"crypto/tls"
	"crypto/x509"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

// GetGrpcConnection dials a node's gRPC endpoint. Endpoints on port 443, or given with an https:// scheme, use TLS
// verified against the system roots.
func GetGrpcConnection(grpcUri string) (*grpc.ClientConn, error) {
	useTLS := strings.HasPrefix(grpcUri, "https://") || strings.HasSuffix(grpcUri, "443")
	target := strings.TrimPrefix(strings.TrimPrefix(grpcUri, "https://"), "http://")

	// Handle connections using SSL
	transportCredentials := grpc.WithTransportCredentials(insecure.NewCredentials())
	if useTLS {
		certPool, err := x509.SystemCertPool()
		if err != nil {
			return nil, err
		}

		creds := credentials.NewTLS(&tls.Config{
			RootCAs:    certPool,
			MinVersion: tls.VersionTLS12,
		})
		transportCredentials = grpc.WithTransportCredentials(creds)
	}

	opts := []grpc.DialOption{
		transportCredentials,
	}

	return grpc.Dial(
		target,
		opts...,
	)
}
