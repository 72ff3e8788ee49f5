package remote

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/INLOpen/journalset/core"
)

const serviceName = "/journalset.v1.RemoteJournal/"

var (
	methodStartLogSegment             = serviceName + "StartLogSegment"
	methodFinalizeLogSegment          = serviceName + "FinalizeLogSegment"
	methodCloseJournal                = serviceName + "Close"
	methodGetNumberOfTransactions     = serviceName + "GetNumberOfTransactions"
	methodGetInputStream              = serviceName + "GetInputStream"
	methodPurgeLogsOlderThan          = serviceName + "PurgeLogsOlderThan"
	methodRecoverUnfinalizedSegments  = serviceName + "RecoverUnfinalizedSegments"
	methodFormat                      = serviceName + "Format"
	methodCreate                      = serviceName + "Create"
	methodWrite                       = serviceName + "Write"
	methodSetReadyToFlush             = serviceName + "SetReadyToFlush"
	methodFlushAndSync                = serviceName + "FlushAndSync"
	methodFlush                       = serviceName + "Flush"
	methodCloseStream                 = serviceName + "CloseStream"
	methodAbort                       = serviceName + "Abort"
	methodGetSyncStatus               = serviceName + "GetSyncStatus"
)

// Journal implements core.UnderlyingJournal against a remote edit log
// service. It is never file-backed: it does not satisfy
// core.FileBackedJournal, so it plays no part in manifest building and is
// only ever reached through the Input Selector or the lifecycle fan-out.
type Journal struct {
	endpoint    string
	conn        *grpc.ClientConn
	compressor  core.Compressor
	dialTimeout time.Duration
	callTimeout time.Duration
	logger      *slog.Logger
	dialCreds   credentials.TransportCredentials
}

var _ core.UnderlyingJournal = (*Journal)(nil)

// Option configures a Journal at construction time.
type Option func(*Journal)

// WithCompressor sets the payload compressor used for every Write call.
// Defaults to no compression.
func WithCompressor(c core.Compressor) Option {
	return func(j *Journal) { j.compressor = c }
}

// WithDialTimeout stores a dial timeout on the journal. Dial does not apply
// it: the client connects lazily on the first RPC, which WithCallTimeout
// bounds.
func WithDialTimeout(d time.Duration) Option {
	return func(j *Journal) { j.dialTimeout = d }
}

// WithCallTimeout bounds every unary RPC issued by the journal.
func WithCallTimeout(d time.Duration) Option {
	return func(j *Journal) { j.callTimeout = d }
}

// WithLogger attaches a logger to the journal.
func WithLogger(logger *slog.Logger) Option {
	return func(j *Journal) { j.logger = logger }
}

// WithTransportCredentials overrides the default insecure transport.
func WithTransportCredentials(creds credentials.TransportCredentials) Option {
	return func(j *Journal) {
		j.dialCreds = creds
	}
}

// Dial opens a gRPC connection to a remote edit log service at endpoint.
func Dial(endpoint string, opts ...Option) (*Journal, error) {
	j := &Journal{
		endpoint:    endpoint,
		compressor:  nil,
		dialTimeout: 5 * time.Second,
		callTimeout: 10 * time.Second,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(j)
	}
	j.logger = j.logger.With("component", "remote.Journal", "endpoint", endpoint)

	creds := j.dialCreds
	if creds == nil {
		creds = insecure.NewCredentials()
	}

	conn, err := grpc.NewClient(endpoint, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("remote: failed to dial %s: %w", endpoint, err)
	}
	j.conn = conn
	return j, nil
}

// Identity reports the dial endpoint, which is stable and unique per
// remote journal for Facade.Remove matching.
func (j *Journal) Identity() string {
	return j.endpoint
}

func (j *Journal) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if j.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, j.callTimeout)
}

func (j *Journal) invoke(ctx context.Context, method string, req []byte) ([]byte, error) {
	cctx, cancel := j.callCtx(ctx)
	defer cancel()

	var resp rawFrame
	if err := j.conn.Invoke(cctx, method, rawFrame(req), &resp, grpc.ForceCodec(rawCodec{})); err != nil {
		return nil, classifyRPCError(method, err)
	}
	return resp, nil
}

func classifyRPCError(method string, err error) error {
	if st, ok := status.FromError(err); ok && st.Code() == codes.DataLoss {
		return &core.CorruptionError{Cause: err}
	}
	return fmt.Errorf("remote: %s failed: %w", method, err)
}

// StartLogSegment asks the remote service to open a segment for txID and
// returns a Stream that ships writes to it over the wire.
func (j *Journal) StartLogSegment(ctx context.Context, txID uint64) (core.OutputStream, error) {
	if _, err := j.invoke(ctx, methodStartLogSegment, encodeTxIDRequest(txID)); err != nil {
		return nil, err
	}
	return newStream(j, txID), nil
}

// FinalizeLogSegment asks the remote service to seal the segment covering
// [firstTxID, lastTxID].
func (j *Journal) FinalizeLogSegment(ctx context.Context, firstTxID, lastTxID uint64) error {
	_, err := j.invoke(ctx, methodFinalizeLogSegment, encodeRangeRequest(firstTxID, lastTxID))
	return err
}

// Close tears down the gRPC connection. Individual entry-level stream
// state has already been closed via Journal Entry's close_stream.
func (j *Journal) Close() error {
	if j.conn == nil {
		return nil
	}
	return j.conn.Close()
}

// GetNumberOfTransactions asks the remote service how many transactions
// it can serve starting at fromTxID.
func (j *Journal) GetNumberOfTransactions(ctx context.Context, fromTxID uint64) (int64, error) {
	resp, err := j.invoke(ctx, methodGetNumberOfTransactions, encodeTxIDRequest(fromTxID))
	if err != nil {
		return 0, err
	}
	return decodeCountResponse(resp)
}

// GetInputStream opens a server-streaming RPC and exposes the chunked
// response as an io.ReadCloser, mirroring the way the fan-out layer
// already treats a file-backed journal's chained segment reader.
func (j *Journal) GetInputStream(ctx context.Context, fromTxID uint64) (io.ReadCloser, error) {
	stream, err := j.conn.NewStream(ctx, &grpc.StreamDesc{StreamName: "GetInputStream", ServerStreams: true}, methodGetInputStream, grpc.ForceCodec(rawCodec{}))
	if err != nil {
		return nil, fmt.Errorf("remote: failed to open input stream from txid %d: %w", fromTxID, err)
	}
	if err := stream.SendMsg(rawFrame(encodeTxIDRequest(fromTxID))); err != nil {
		return nil, fmt.Errorf("remote: failed to request input stream from txid %d: %w", fromTxID, err)
	}
	if err := stream.CloseSend(); err != nil {
		return nil, fmt.Errorf("remote: failed to close input stream request: %w", err)
	}
	return newChunkReader(stream), nil
}

// PurgeLogsOlderThan asks the remote service to discard segments entirely
// before minTxIDToKeep.
func (j *Journal) PurgeLogsOlderThan(ctx context.Context, minTxIDToKeep uint64) error {
	_, err := j.invoke(ctx, methodPurgeLogsOlderThan, encodeTxIDRequest(minTxIDToKeep))
	return err
}

// RecoverUnfinalizedSegments asks the remote service to finalize any
// segment left open by an unclean shutdown.
func (j *Journal) RecoverUnfinalizedSegments(ctx context.Context) error {
	_, err := j.invoke(ctx, methodRecoverUnfinalizedSegments, encodeEmptyRequest())
	return err
}

// Format asks the remote service to wipe and restamp its storage for a
// fresh namespace. Errors propagate directly; Facade.FormatNonFileJournals
// does not route this through the Health Arbiter.
func (j *Journal) Format(ctx context.Context, nsInfo core.NamespaceInfo) error {
	_, err := j.invoke(ctx, methodFormat, encodeRangeRequest(nsInfo.NamespaceID, uint64(nsInfo.CreationTime)))
	return err
}
