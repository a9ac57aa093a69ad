package debug

import (
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Plot 把残差收敛历史渲染为PNG图片
func (h *History) Plot(file string) error {
	p := h.buildPlot()
	return p.Save(6*vg.Inch, 4*vg.Inch, file)
}

// buildPlot 构造收敛曲线图
func (h *History) buildPlot() *plot.Plot {
	p := plot.New()
	p.Title.Text = "残差收敛曲线"
	p.X.Label.Text = "迭代"
	p.Y.Label.Text = "log10(‖r‖)"
	p.Legend.Top = true
	for i, path := range h.Paths() {
		samples := h.Samples(path)
		xys := make(plotter.XYs, len(samples))
		for j, s := range samples {
			xys[j].X = float64(j)
			xys[j].Y = math.Log10(math.Max(s.Norm, 1e-300))
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			continue
		}
		line.Color = plotutil.Color(i)
		p.Add(line)
		name := path
		if name == "" {
			name = "(root)"
		}
		p.Legend.Add(name, line)
	}
	return p
}
