package cutting

import (
	"fmt"
	"math"
)

// gateOp is a single-qubit operation template; the target qubit is filled in
// when a channel is substituted into a fragment.
type gateOp struct {
	name  string
	value float64
}

// qpdSide describes what one side of a cut does in one channel: operations
// before an optional mid-circuit Z measurement, whether that measurement's
// outcome flips the term sign, and operations after it.
type qpdSide struct {
	pre  []gateOp
	meas bool
	sign bool // measured bit 1 negates the term (requires meas)
	post []gateOp
}

// qpdChannel is one term of a cut's quasi-probability decomposition. For gate
// cuts, a and b are the two gate halves in qubit-slot order. For wire cuts, a
// is the upstream (measure) end and b the downstream (prepare) end.
type qpdChannel struct {
	coeff float64
	a, b  qpdSide
}

var (
	opZ   = gateOp{name: "z"}
	opX   = gateOp{name: "x"}
	opH   = gateOp{name: "h"}
	opS   = gateOp{name: "s"}
	opSdg = gateOp{name: "sdg"}
	opRzP = gateOp{name: "rz", value: math.Pi / 2}
	opRzM = gateOp{name: "rz", value: -math.Pi / 2}
)

func ops(o ...gateOp) []gateOp { return o }

// czChannels is the six-term decomposition of a CZ gate. Every side carries an
// rz(pi/2) correction; four terms trade a Z measurement on one side against a
// conditional rotation on the other. The one-norm is 3.
func czChannels() []qpdChannel {
	return []qpdChannel{
		{coeff: 0.5,
			a: qpdSide{pre: ops(opRzP)},
			b: qpdSide{pre: ops(opRzP)}},
		{coeff: 0.5,
			a: qpdSide{pre: ops(opRzP, opZ)},
			b: qpdSide{pre: ops(opRzP, opZ)}},
		{coeff: 0.5,
			a: qpdSide{pre: ops(opRzP), meas: true, sign: true},
			b: qpdSide{pre: ops(opRzP, opRzM)}},
		{coeff: -0.5,
			a: qpdSide{pre: ops(opRzP), meas: true, sign: true},
			b: qpdSide{pre: ops(opRzP, opRzP)}},
		{coeff: 0.5,
			a: qpdSide{pre: ops(opRzP, opRzM)},
			b: qpdSide{pre: ops(opRzP), meas: true, sign: true}},
		{coeff: -0.5,
			a: qpdSide{pre: ops(opRzP, opRzP)},
			b: qpdSide{pre: ops(opRzP), meas: true, sign: true}},
	}
}

// cxChannels conjugates the CZ decomposition with Hadamards on the target
// slot, since CX = (I x H) CZ (I x H).
func cxChannels() []qpdChannel {
	chs := czChannels()
	for i := range chs {
		b := &chs[i].b
		b.pre = append(ops(opH), b.pre...)
		if b.meas {
			b.post = append(b.post, opH)
		} else {
			b.pre = append(b.pre, opH)
		}
	}
	return chs
}

// wireChannels is the eight-term measure-and-prepare decomposition of an
// identity wire. The upstream end is measured in the Z, X or Y basis; the
// downstream end restarts on a fresh qubit prepared in a matching eigenstate.
// The one-norm is 4.
func wireChannels() []qpdChannel {
	return []qpdChannel{
		{coeff: 0.5,
			a: qpdSide{meas: true},
			b: qpdSide{}},
		{coeff: 0.5,
			a: qpdSide{meas: true},
			b: qpdSide{pre: ops(opX)}},
		{coeff: 0.5,
			a: qpdSide{pre: ops(opH), meas: true, sign: true},
			b: qpdSide{pre: ops(opH)}},
		{coeff: -0.5,
			a: qpdSide{pre: ops(opH), meas: true, sign: true},
			b: qpdSide{pre: ops(opX, opH)}},
		{coeff: 0.5,
			a: qpdSide{pre: ops(opSdg, opH), meas: true, sign: true},
			b: qpdSide{pre: ops(opH, opS)}},
		{coeff: -0.5,
			a: qpdSide{pre: ops(opSdg, opH), meas: true, sign: true},
			b: qpdSide{pre: ops(opH, opSdg)}},
		{coeff: 0.5,
			a: qpdSide{meas: true, sign: true},
			b: qpdSide{}},
		{coeff: -0.5,
			a: qpdSide{meas: true, sign: true},
			b: qpdSide{pre: ops(opX)}},
	}
}

// channelsFor returns the decomposition for one materialized cut.
func channelsFor(cut Cut) ([]qpdChannel, error) {
	switch cut.Kind {
	case GateCut:
		switch cut.Gate {
		case "cz":
			return czChannels(), nil
		case "cx":
			return cxChannels(), nil
		}
		return nil, fmt.Errorf("no decomposition for gate %q", cut.Gate)
	case WireCut:
		return wireChannels(), nil
	}
	return nil, fmt.Errorf("no decomposition for cut kind %s", cut.Kind)
}
