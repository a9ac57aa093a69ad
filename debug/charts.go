package debug

import (
	"fmt"
	"io"
	"log"
	"math"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

// Charts 收敛曲线绘制
type Charts struct {
	*History
}

// Render 格式化
func (c *Charts) Render(w io.Writer) error {
	// 初始化界面
	lineN := charts.NewLine()
	lineN.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme: types.ThemeWesteros,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "残差收敛曲线",
			Subtitle: "各求解器残差范数随外层迭代变化（log10）",
		}),
		charts.WithLegendOpts(opts.Legend{
			Type:   "scroll",
			Orient: "vertical",
			Right:  "10",
			Top:    "20",
			Bottom: "20",
		}),
		charts.WithXAxisOpts(opts.XAxis{
			SplitNumber: 20,
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale: opts.Bool(true),
		}),
		charts.WithDataZoomOpts(opts.DataZoom{
			Type:       "inside",
			Start:      0,
			End:        100,
			XAxisIndex: []int{0},
		}),
		charts.WithAnimation(true),
	)
	lineU := charts.NewLine()
	lineU.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme: types.ThemeWesteros,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "状态轨迹",
			Subtitle: "各状态分量随外层迭代变化",
		}),
		charts.WithLegendOpts(opts.Legend{
			Type:   "scroll",
			Orient: "vertical",
			Right:  "10",
			Top:    "20",
			Bottom: "20",
		}),
		charts.WithXAxisOpts(opts.XAxis{
			SplitNumber: 20,
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale: opts.Bool(true),
		}),
		charts.WithAnimation(true),
	)
	// 处理数据
	paths := c.Paths()
	{
		maxLen := 0
		for _, p := range paths {
			if n := len(c.Samples(p)); n > maxLen {
				maxLen = n
			}
		}
		xAxis := make([]int, maxLen)
		for i := range xAxis {
			xAxis[i] = i
		}
		lineN.SetXAxis(xAxis)
		for _, p := range paths {
			samples := c.Samples(p)
			items := make([]opts.LineData, len(samples))
			for i, s := range samples {
				v := math.Log10(math.Max(s.Norm, 1e-300))
				items[i] = opts.LineData{Value: v}
			}
			name := p
			if name == "" {
				name = "(root)"
			}
			lineN.AddSeries(name, items)
		}
	}
	// 状态轨迹取最后记录的路径（通常是最外层求解器）
	if len(paths) > 0 {
		samples := c.Samples(paths[len(paths)-1])
		if len(samples) > 0 {
			xAxis := make([]int, len(samples))
			for i := range xAxis {
				xAxis[i] = i
			}
			lineU.SetXAxis(xAxis)
			for j := range samples[0].State {
				items := make([]opts.LineData, len(samples))
				for i, s := range samples {
					items[i] = opts.LineData{Value: s.State[j]}
				}
				lineU.AddSeries(fmt.Sprintf("u[%d]", j), items)
			}
		}
	}
	// 构建界面
	page := components.NewPage()
	page.AddCharts(
		lineN,
		lineU,
	)
	return page.Render(w)
}

// Handler 发布到网页面
func (c *Charts) Handler(w http.ResponseWriter, _ *http.Request) {
	c.Render(w)
}

func (c *Charts) Error(err error) { log.Println(err) }
