package catalog

import "fmt"

// Compiled-in names that never need a refresh. resourceNames is the
// hand-maintained material list shown by the legacy diamond panel.
var resourceNames = map[int]string{
	1:  "想いの木材(心願的木材)",
	2:  "おもたい木材(堅硬的木材)",
	3:  "かるい木材(輕的木材)",
	4:  "ベタベタの樹液(黏黏的樹液)",
	5:  "夕桐",
	6:  "想いの石ころ(心願的石塊)",
	7:  "銅",
	8:  "鉄",
	9:  "粘土",
	10: "きれいなガラス(玻璃)",
	11: "きらきクォーツ(石英)",
	12: "ダイヤモンド(鑽石)",
	13: "ねじ(螺絲)",
	14: "釘",
	15: "プラスチック(塑膠)",
	16: "モーター(馬達)",
	17: "電池",
	18: "ライト(燈泡)",
	19: "電子基板",
	20: "四葉のクローバー(四葉草)",
	21: "さらさらリネン(亞麻)",
	22: "ふわふわコットン(棉花)",
	23: "花びら",
	24: "まっさらな音色",
	32: "あおぞらシーグラス",
	33: "月光石",
	34: "流れ星のかけら",
	35: "スカイブルーメモリア",
	36: "パッシンイエローメモリア",
	37: "ポピーレッドメモリア",
	38: "イエローグリーンメモリア",
	39: "アプリコットメモリア",
	40: "ストリクトブルーメモリア",
	41: "ラブリーピンクメモリア",
	42: "オパールグリーンメモリア",
	43: "スリーズメモリア",
	44: "ターコイズブルーメモリア",
	45: "ジョリーコーラルメモリア",
	46: "ロイヤルブルーメモリア",
	47: "サンフラワーメモリア",
	48: "ポカポカピンクメモリア",
	49: "スプリンググリーンメモリア",
	50: "カンパヌラパープルメモリア",
	51: "ファリダメモリア",
	52: "ウィスタリアメモリア",
	53: "キャメルメモリア",
	54: "ッスルメモリア",
	55: "ブルーグリーンメモリア",
	56: "オレンジメモリア",
	57: "イエローメモリア",
	58: "ピンクメモリア",
	59: "レッドメモリア",
	60: "ブルーメモリア",
	61: "雪の結",
	62: "最高のオノの刃",
	63: "最高のツルハシの先端",
	64: "雷光石",
	65: "彩虹のビードロ",
	66: "ふわもこわたぐも",
}

var placeNames = map[int]string{
	1: "マイホーム",
	2: "1F",
	3: "2F",
	4: "3F",
	5: "さいしょの原っぱ",
	6: "願いの砂浜",
	7: "彩りの花畑",
	8: "忘れ去られた場所",
}

var fixtureNames = map[int]string{
	1001: "闊葉樹",
	1002: "針葉樹",
	1003: "熱帶樹",
	1004: "夕桐",
	2001: "岩石",
	2002: "銅礦",
	2003: "鐵礦",
	2004: "玻璃礦",
	2005: "石英礦",
	3001: "工具箱",
	4001: "植物",
	4003: "花1",
	4004: "花2",
	4005: "花3",
	4006: "花4",
	4007: "花5",
	4008: "花6",
	4012: "花7",
	4013: "花8",
	4014: "花9",
	4015: "花10",
	4016: "花11",
	4017: "花12",
	5003: "木桶1",
	5004: "發光的草堆",
	6001: "木桶2",
}

// ResourceName resolves against the compiled-in material list.
func ResourceName(id int) string {
	return lookupOr(resourceNames, id, "Resource")
}

// PlaceName resolves a harvest site id to one of the eight named places.
func PlaceName(id int) string {
	return lookupOr(placeNames, id, "Place")
}

// FixtureName resolves a harvest fixture id.
func FixtureName(id int) string {
	return lookupOr(fixtureNames, id, "Fixture")
}

func lookupOr(table map[int]string, id int, label string) string {
	if name, ok := table[id]; ok {
		return name
	}
	return placeholder(label, id)
}

func placeholder(label string, id int) string {
	return fmt.Sprintf("%s %d", label, id)
}
