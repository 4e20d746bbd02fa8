package tools

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fernwey/atlas-travel-agent/internal/fx"
	"github.com/fernwey/atlas-travel-agent/internal/weather"
)

const defaultSearchLimit = 5

func (r *Registry) registerBuiltins() {
	r.Register(&Tool{
		Name:        "search_hotels",
		Description: "按城市搜索酒店，可按每晚最高价格和最低评分过滤。",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"city": map[string]any{
					"type":        "string",
					"description": "城市名称，如 北京、上海",
				},
				"max_price": map[string]any{
					"type":        "number",
					"description": "每晚最高价格（人民币），0 表示不限",
				},
				"min_rating": map[string]any{
					"type":        "number",
					"description": "最低评分（0-5），0 表示不限",
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": "最多返回数量（默认 5）",
				},
			},
			"required": []string{"city"},
		},
		Handler: r.handleSearchHotels,
	})

	r.Register(&Tool{
		Name:        "search_attractions",
		Description: "按城市搜索景点，可按类别（历史文化、自然风光、城市景观等）过滤。",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"city": map[string]any{
					"type":        "string",
					"description": "城市名称",
				},
				"category": map[string]any{
					"type":        "string",
					"description": "景点类别，留空表示全部",
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": "最多返回数量（默认 5）",
				},
			},
			"required": []string{"city"},
		},
		Handler: r.handleSearchAttractions,
	})

	r.Register(&Tool{
		Name:        "search_restaurants",
		Description: "按城市搜索餐厅，可按菜系和人均价格过滤。",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"city": map[string]any{
					"type":        "string",
					"description": "城市名称",
				},
				"cuisine": map[string]any{
					"type":        "string",
					"description": "菜系，如 中餐、当地特色，留空表示全部",
				},
				"max_price": map[string]any{
					"type":        "number",
					"description": "人均最高价格（人民币），0 表示不限",
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": "最多返回数量（默认 5）",
				},
			},
			"required": []string{"city"},
		},
		Handler: r.handleSearchRestaurants,
	})

	r.Register(&Tool{
		Name:        "convert_currency",
		Description: "按固定汇率表换算货币，支持 CNY、USD、EUR、JPY、KRW、GBP、AUD、CAD。",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"amount": map[string]any{
					"type":        "number",
					"description": "金额",
				},
				"from": map[string]any{
					"type":        "string",
					"description": "原币种代码，如 CNY",
				},
				"to": map[string]any{
					"type":        "string",
					"description": "目标币种代码，如 JPY",
				},
			},
			"required": []string{"amount", "from", "to"},
		},
		Handler: r.handleConvertCurrency,
	})

	r.Register(&Tool{
		Name:        "get_weather",
		Description: "查询城市天气。不指定日期时返回当天天气。",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"city": map[string]any{
					"type":        "string",
					"description": "城市名称",
				},
				"date": map[string]any{
					"type":        "string",
					"description": "日期（2006-01-02 格式），留空表示今天",
				},
			},
			"required": []string{"city"},
		},
		Handler: r.handleGetWeather,
	})

	r.Register(&Tool{
		Name:        "compare_flights",
		Description: "比较两城市间各航空公司的机票价格。",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"from": map[string]any{
					"type":        "string",
					"description": "出发城市",
				},
				"to": map[string]any{
					"type":        "string",
					"description": "到达城市",
				},
			},
			"required": []string{"from", "to"},
		},
		Handler: r.handleCompareFlights,
	})

	r.Register(&Tool{
		Name:        "search_knowledge",
		Description: "在旅行知识库中检索攻略、签证、美食等资料。",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "检索关键词",
				},
				"category": map[string]any{
					"type":        "string",
					"description": "限定类别：旅行攻略、签证信息、美食推荐，留空表示全部",
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": "最多返回数量（默认 3）",
				},
			},
			"required": []string{"query"},
		},
		Handler: r.handleSearchKnowledge,
	})
}

// Tool handlers

func (r *Registry) handleSearchHotels(_ context.Context, args map[string]any) (string, error) {
	city, _ := args["city"].(string)
	if city == "" {
		return "", &BadArgumentsError{Tool: "search_hotels", Reason: "city is required"}
	}
	maxPrice, _ := args["max_price"].(float64)
	minRating, _ := args["min_rating"].(float64)

	limit := defaultSearchLimit
	if l, ok := args["limit"].(float64); ok && l > 0 {
		limit = int(l)
	}

	hotels := r.catalog.SearchHotels(city, maxPrice, minRating)
	if len(hotels) == 0 {
		return fmt.Sprintf("未找到%s符合条件的酒店，可以放宽价格或评分要求再试。", city), nil
	}
	if len(hotels) > limit {
		hotels = hotels[:limit]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "为您找到%s的%d家酒店：\n", city, len(hotels))
	for _, h := range hotels {
		fmt.Fprintf(&b, "- %s：¥%.0f/晚，评分%.1f", h.Name, h.PricePerNight, h.Rating)
		if h.Type != "" {
			b.WriteString("，" + h.Type)
		}
		if len(h.Amenities) > 0 {
			b.WriteString("，设施：" + strings.Join(h.Amenities, "、"))
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}

func (r *Registry) handleSearchAttractions(_ context.Context, args map[string]any) (string, error) {
	city, _ := args["city"].(string)
	if city == "" {
		return "", &BadArgumentsError{Tool: "search_attractions", Reason: "city is required"}
	}
	category, _ := args["category"].(string)

	limit := defaultSearchLimit
	if l, ok := args["limit"].(float64); ok && l > 0 {
		limit = int(l)
	}

	attractions := r.catalog.SearchAttractions(city, category)
	if len(attractions) == 0 {
		return fmt.Sprintf("未找到%s的相关景点。", city), nil
	}
	if len(attractions) > limit {
		attractions = attractions[:limit]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "为您找到%s的%d个景点：\n", city, len(attractions))
	for _, a := range attractions {
		fmt.Fprintf(&b, "- %s（%s）：门票¥%.0f，建议游玩%s小时", a.Name, a.Category, a.TicketPrice, formatHours(a.DurationHours))
		if a.Description != "" {
			b.WriteString("，" + a.Description)
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}

func (r *Registry) handleSearchRestaurants(_ context.Context, args map[string]any) (string, error) {
	city, _ := args["city"].(string)
	if city == "" {
		return "", &BadArgumentsError{Tool: "search_restaurants", Reason: "city is required"}
	}
	cuisine, _ := args["cuisine"].(string)
	maxPrice, _ := args["max_price"].(float64)

	limit := defaultSearchLimit
	if l, ok := args["limit"].(float64); ok && l > 0 {
		limit = int(l)
	}

	restaurants := r.catalog.SearchRestaurants(city, cuisine, maxPrice)
	if len(restaurants) == 0 {
		return fmt.Sprintf("未找到%s符合条件的餐厅。", city), nil
	}
	if len(restaurants) > limit {
		restaurants = restaurants[:limit]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "为您找到%s的%d家餐厅：\n", city, len(restaurants))
	for _, rest := range restaurants {
		fmt.Fprintf(&b, "- %s（%s）：人均¥%.0f，评分%.1f", rest.Name, rest.Cuisine, rest.AvgPrice, rest.Rating)
		if len(rest.Specialties) > 0 {
			b.WriteString("，招牌菜：" + strings.Join(rest.Specialties, "、"))
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}

func (r *Registry) handleConvertCurrency(_ context.Context, args map[string]any) (string, error) {
	amount, ok := args["amount"].(float64)
	if !ok || amount <= 0 {
		return "", &BadArgumentsError{Tool: "convert_currency", Reason: "amount must be a positive number"}
	}
	from, _ := args["from"].(string)
	to, _ := args["to"].(string)
	if from == "" || to == "" {
		return "", &BadArgumentsError{Tool: "convert_currency", Reason: "from and to are required"}
	}

	converted, err := fx.Convert(amount, from, to)
	if err != nil {
		return "", &ExecutionError{Tool: "convert_currency", Err: err}
	}

	fromRate, _ := fx.Rate(from)
	toRate, _ := fx.Rate(to)
	return fmt.Sprintf("%.2f %s = %.2f %s（汇率 %.4f）",
		amount, strings.ToUpper(from), converted, strings.ToUpper(to), fromRate/toRate), nil
}

func (r *Registry) handleGetWeather(_ context.Context, args map[string]any) (string, error) {
	city, _ := args["city"].(string)
	if city == "" {
		return "", &BadArgumentsError{Tool: "get_weather", Reason: "city is required"}
	}

	var info weather.Info
	if dateStr, _ := args["date"].(string); dateStr != "" {
		date, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			return "", &BadArgumentsError{Tool: "get_weather", Reason: "date must be 2006-01-02", Err: err}
		}
		info = r.weather.Forecast(city, date)
	} else {
		info = r.weather.Current(city)
	}

	return fmt.Sprintf("%s %s 天气：%s，气温 %.0f°C ~ %.0f°C，湿度 %d%%，风速 %.0fkm/h",
		info.City, info.Date, info.Condition, info.Low, info.High, info.Humidity, info.WindSpeed), nil
}

func (r *Registry) handleCompareFlights(_ context.Context, args map[string]any) (string, error) {
	from, _ := args["from"].(string)
	to, _ := args["to"].(string)
	if from == "" || to == "" {
		return "", &BadArgumentsError{Tool: "compare_flights", Reason: "from and to are required"}
	}

	flights := r.catalog.SearchFlights(from, to)
	if len(flights) == 0 {
		return fmt.Sprintf("未找到%s到%s的航班。", from, to), nil
	}

	prices := make(map[string][]float64)
	for _, f := range flights {
		prices[f.Airline] = append(prices[f.Airline], f.Price)
	}

	type airlineStats struct {
		airline       string
		min, avg, max float64
		count         int
	}
	stats := make([]airlineStats, 0, len(prices))
	for airline, ps := range prices {
		s := airlineStats{airline: airline, min: ps[0], max: ps[0]}
		var sum float64
		for _, p := range ps {
			if p < s.min {
				s.min = p
			}
			if p > s.max {
				s.max = p
			}
			sum += p
		}
		s.avg = sum / float64(len(ps))
		s.count = len(ps)
		stats = append(stats, s)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].min != stats[j].min {
			return stats[i].min < stats[j].min
		}
		return stats[i].airline < stats[j].airline
	})

	var b strings.Builder
	fmt.Fprintf(&b, "%s→%s 航班比价：\n", from, to)
	for _, s := range stats {
		fmt.Fprintf(&b, "- %s：最低¥%.0f，平均¥%.0f，最高¥%.0f，共%d班\n",
			s.airline, s.min, s.avg, s.max, s.count)
	}
	return b.String(), nil
}

func (r *Registry) handleSearchKnowledge(_ context.Context, args map[string]any) (string, error) {
	query, _ := args["query"].(string)
	if query == "" {
		return "", &BadArgumentsError{Tool: "search_knowledge", Reason: "query is required"}
	}
	category, _ := args["category"].(string)

	limit := 3
	if l, ok := args["limit"].(float64); ok && l > 0 {
		limit = int(l)
	}

	results := r.kb.Search(query, category, limit)
	if len(results) == 0 {
		return "没有找到相关的旅行资料。", nil
	}

	var b strings.Builder
	for i, res := range results {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "【%s】\n%s\n", res.Title, strings.TrimSpace(res.Content))
	}
	return b.String(), nil
}

// formatHours renders 2.5 as "2.5" and 3.0 as "3".
func formatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64)
}
