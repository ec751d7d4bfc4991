package service

import (
	"sort"
	"time"

	"fraud-ring-analyzer/internal/domain/entity"
)

// edgeKey identifies an aggregate edge by its ordered account pair.
type edgeKey struct {
	From string
	To   string
}

// edgeData is the aggregate view of all transactions between one ordered
// account pair. Weight and TotalAmount only ever accumulate.
type edgeData struct {
	Weight      int
	TotalAmount float64
}

// edgeMeta retains the per-transaction detail the aggregate edge loses.
type edgeMeta struct {
	Amount    float64
	Timestamp *time.Time
}

// txnGraph is a directed graph of accounts with multiple raw transactions
// between the same ordered pair collapsed into one aggregate edge. Reverse
// adjacency is kept for degree queries and weak-component walks.
type txnGraph struct {
	out  map[string]map[string]*edgeData
	in   map[string]map[string]struct{}
	meta map[edgeKey][]edgeMeta
}

func newTxnGraph() *txnGraph {
	return &txnGraph{
		out:  make(map[string]map[string]*edgeData),
		in:   make(map[string]map[string]struct{}),
		meta: make(map[edgeKey][]edgeMeta),
	}
}

// buildTransactionGraph folds a batch into the aggregate graph plus the
// per-pair metadata index. Invalid records are dropped silently.
func buildTransactionGraph(transactions []*entity.Transaction) *txnGraph {
	g := newTxnGraph()
	for _, txn := range transactions {
		if !txn.IsValid() {
			continue
		}
		g.addTransaction(txn.SenderID, txn.ReceiverID, txn.Amount, ParseTimestamp(txn.Timestamp))
	}
	return g
}

func (g *txnGraph) addTransaction(from, to string, amount float64, ts *time.Time) {
	g.ensureNode(from)
	g.ensureNode(to)

	if edge, ok := g.out[from][to]; ok {
		edge.Weight++
		edge.TotalAmount += amount
	} else {
		g.out[from][to] = &edgeData{Weight: 1, TotalAmount: amount}
		g.in[to][from] = struct{}{}
	}

	key := edgeKey{From: from, To: to}
	g.meta[key] = append(g.meta[key], edgeMeta{Amount: amount, Timestamp: ts})
}

func (g *txnGraph) ensureNode(id string) {
	if _, ok := g.out[id]; !ok {
		g.out[id] = make(map[string]*edgeData)
		g.in[id] = make(map[string]struct{})
	}
}

func (g *txnGraph) hasNode(id string) bool {
	_, ok := g.out[id]
	return ok
}

func (g *txnGraph) nodeCount() int {
	return len(g.out)
}

// nodes returns every account id in lexicographic order so that all walks
// over the graph are deterministic.
func (g *txnGraph) nodes() []string {
	ids := make([]string, 0, len(g.out))
	for id := range g.out {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// successors returns the out-neighbors of a node in lexicographic order.
func (g *txnGraph) successors(id string) []string {
	next := make([]string, 0, len(g.out[id]))
	for to := range g.out[id] {
		next = append(next, to)
	}
	sort.Strings(next)
	return next
}

// predecessors returns the in-neighbors of a node in lexicographic order.
func (g *txnGraph) predecessors(id string) []string {
	prev := make([]string, 0, len(g.in[id]))
	for from := range g.in[id] {
		prev = append(prev, from)
	}
	sort.Strings(prev)
	return prev
}

func (g *txnGraph) edge(from, to string) (*edgeData, bool) {
	edge, ok := g.out[from][to]
	return edge, ok
}

func (g *txnGraph) edgeMetadata(from, to string) []edgeMeta {
	return g.meta[edgeKey{From: from, To: to}]
}

func (g *txnGraph) outDegree(id string) int {
	return len(g.out[id])
}

func (g *txnGraph) inDegree(id string) int {
	return len(g.in[id])
}

// degree is the total number of distinct in- and out-neighbors.
func (g *txnGraph) degree(id string) int {
	return len(g.out[id]) + len(g.in[id])
}

// transactionCount is the number of raw transactions the node participates
// in, on either side.
func (g *txnGraph) transactionCount(id string) int {
	count := 0
	for _, edge := range g.out[id] {
		count += edge.Weight
	}
	for from := range g.in[id] {
		count += g.out[from][id].Weight
	}
	return count
}

func (g *txnGraph) removeNode(id string) {
	for to := range g.out[id] {
		delete(g.in[to], id)
	}
	for from := range g.in[id] {
		delete(g.out[from], id)
	}
	delete(g.out, id)
	delete(g.in, id)
}

// clone copies adjacency so pruning never mutates the original graph. The
// metadata index is shared: it is append-only and keyed by account pair.
func (g *txnGraph) clone() *txnGraph {
	copied := newTxnGraph()
	copied.meta = g.meta
	for from, edges := range g.out {
		copied.ensureNode(from)
		for to, edge := range edges {
			copied.ensureNode(to)
			copied.out[from][to] = &edgeData{Weight: edge.Weight, TotalAmount: edge.TotalAmount}
			copied.in[to][from] = struct{}{}
		}
	}
	return copied
}

// pruneForCycles returns a copy of the graph with two node classes removed,
// in order: hub accounts whose total degree exceeds
// max(hubDegreeLimit, 10% of node count), then pure sources and sinks left
// after hub removal. Hubs are legitimate high-fan aggregators (exchanges,
// payroll) that would explode cycle enumeration without being
// circular-routing candidates; sources and sinks cannot sit on any cycle.
func pruneForCycles(g *txnGraph, hubDegreeLimit int) *txnGraph {
	pruned := g.clone()

	threshold := hubDegreeLimit
	if dynamic := int(0.1 * float64(pruned.nodeCount())); dynamic > threshold {
		threshold = dynamic
	}

	// Both classes are snapshotted before removal: taking out one hub must
	// not demote another below the threshold, and leaf removal does not
	// cascade.
	var hubs []string
	for _, id := range pruned.nodes() {
		if pruned.degree(id) > threshold {
			hubs = append(hubs, id)
		}
	}
	for _, id := range hubs {
		pruned.removeNode(id)
	}

	var leaves []string
	for _, id := range pruned.nodes() {
		if pruned.inDegree(id) == 0 || pruned.outDegree(id) == 0 {
			leaves = append(leaves, id)
		}
	}
	for _, id := range leaves {
		pruned.removeNode(id)
	}
	return pruned
}
