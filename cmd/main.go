package main

import (
	"fmt"
	"os"

	"mdo"
	"mdo/debug"
	"mdo/model"
	"mdo/solver"
	"mdo/types"
)

func main() {

	p := mdo.NewProblem()
	cycle := model.BuildSellar(p)

	gs := solver.NewGaussSeidel()
	gs.Options.Iprint = 2
	p.Model.SetNonlinear(cycle, gs)
	p.SetLog(os.Stdout)

	h := debug.NewHistory()
	p.Model.Recorder = h

	rec, err := p.RunModel()
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(rec)
	fmt.Printf("y1 = %.8f\ny2 = %.8f\n", p.GetVal("cycle.d1.y1"), p.GetVal("cycle.d2.y2"))

	tot, err := p.ComputeTotals(
		[]string{"cycle.d1.y1", "cycle.d2.y2"},
		[]string{"px.x", "pz.z"},
		types.ModeAuto)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("dy1/dx = %.8f\n", tot.Get("cycle.d1.y1", "px.x").At(0, 0))
	fmt.Printf("dy2/dz = %v\n", tot.Get("cycle.d2.y2", "pz.z").RawMatrix().Data)

	fmt.Println(h.Plot("convergence.png"))
}
